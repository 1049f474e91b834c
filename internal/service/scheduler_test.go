package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	latestCalls atomic.Int32
	soldCalls   atomic.Int32
	latestErr   error
	soldPanic   bool
	gotSize     atomic.Int32
}

func (f *fakeSyncer) SyncLatestUnits(ctx context.Context, p marketplace.ListingsParams) (SyncResult, error) {
	f.latestCalls.Add(1)
	if f.latestErr != nil {
		return SyncResult{}, f.latestErr
	}
	return SyncResult{Collection: repository.LatestUnitsCollection, Records: p.Size}, nil
}

func (f *fakeSyncer) SyncRecentlySold(ctx context.Context, from, size int) (SyncResult, error) {
	f.soldCalls.Add(1)
	f.gotSize.Store(int32(size))
	if f.soldPanic {
		panic("boom")
	}
	return SyncResult{Collection: repository.RecentlySoldCollection, Records: size}, nil
}

func TestSyncScheduler_RunNow(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewSyncScheduler(syncer, SchedulerConfig{Listings: marketplace.ListingsParams{Size: 24}, SoldSize: 10})

	results, err := s.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, repository.LatestUnitsCollection, results[0].Collection)
	assert.Equal(t, 24, results[0].Records)
	assert.Equal(t, repository.RecentlySoldCollection, results[1].Collection)
	assert.Equal(t, int32(10), syncer.gotSize.Load())
}

func TestSyncScheduler_RunNowContinuesPastFailures(t *testing.T) {
	failure := errors.New("remote down")
	syncer := &fakeSyncer{latestErr: failure, soldPanic: true}
	s := NewSyncScheduler(syncer, SchedulerConfig{})

	results, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "panicked")
	assert.Empty(t, results)
	assert.Equal(t, int32(1), syncer.latestCalls.Load())
	assert.Equal(t, int32(1), syncer.soldCalls.Load())
}

func TestSyncScheduler_Defaults(t *testing.T) {
	s := NewSyncScheduler(&fakeSyncer{}, SchedulerConfig{})
	assert.Equal(t, 5*time.Minute, s.config.Interval)
	assert.Equal(t, 2*time.Minute, s.config.RunTimeout)
	assert.Equal(t, 20, s.config.SoldSize)
}

func TestSyncScheduler_StartStop(t *testing.T) {
	syncer := &fakeSyncer{latestErr: errors.New("remote down")}
	s := NewSyncScheduler(syncer, SchedulerConfig{Interval: 10 * time.Millisecond})

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool {
		return syncer.latestCalls.Load() >= 2 && syncer.soldCalls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}

// blockingSyncer holds the latest sync until its context ends.
type blockingSyncer struct {
	started  chan struct{}
	canceled chan error
}

func (b *blockingSyncer) SyncLatestUnits(ctx context.Context, p marketplace.ListingsParams) (SyncResult, error) {
	close(b.started)
	<-ctx.Done()
	b.canceled <- ctx.Err()
	return SyncResult{}, ctx.Err()
}

func (b *blockingSyncer) SyncRecentlySold(ctx context.Context, from, size int) (SyncResult, error) {
	return SyncResult{Collection: repository.RecentlySoldCollection}, nil
}

func TestSyncScheduler_StopCancelsRunInProgress(t *testing.T) {
	syncer := &blockingSyncer{started: make(chan struct{}), canceled: make(chan error, 1)}
	s := NewSyncScheduler(syncer, SchedulerConfig{Interval: time.Hour, RunTimeout: time.Hour})

	s.Start()
	select {
	case <-syncer.started:
	case <-time.After(time.Second):
		t.Fatal("scheduled run did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case err := <-syncer.canceled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run in progress was not canceled by Stop")
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the run ended")
	}
}
