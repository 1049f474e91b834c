package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"axie-market-cache/internal/lock"
	"axie-market-cache/internal/model"
	"axie-market-cache/internal/repository"
)

// SyncResult describes a successful collection replacement.
type SyncResult struct {
	Collection  string        `json:"collection"`
	Records     int           `json:"records"`
	Skipped     int           `json:"skipped"`
	RemoteTotal int           `json:"remote_total"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// SyncStatus is the running record of sync attempts on one collection.
type SyncStatus struct {
	Collection    string     `json:"collection"`
	Attempts      int64      `json:"attempts"`
	Failures      int64      `json:"failures"`
	LastAttempt   time.Time  `json:"last_attempt"`
	LastSuccess   time.Time  `json:"last_success"`
	LastRecords   int        `json:"last_records"`
	LastSkipped   int        `json:"last_skipped"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorKind model.Kind `json:"last_error_kind,omitempty"`
}

// Batch is a fully normalized set of records ready to replace a collection.
type Batch[T repository.Record] struct {
	Records []T
	Skipped int
	Total   int
}

// FetchFunc fetches and normalizes a batch. It must not touch the collection.
type FetchFunc[T repository.Record] func(ctx context.Context) (Batch[T], error)

// Synchronizer keeps one collection equal to the latest successful fetch.
// Attempts on the same collection are serialized through the locker; the
// collection is only written once the whole batch normalized.
type Synchronizer[T repository.Record] struct {
	collection repository.Collection[T]
	locker     lock.Locker

	mu     sync.Mutex
	status SyncStatus
}

// NewSynchronizer creates a synchronizer for collection.
func NewSynchronizer[T repository.Record](collection repository.Collection[T], locker lock.Locker) *Synchronizer[T] {
	return &Synchronizer[T]{
		collection: collection,
		locker:     locker,
		status:     SyncStatus{Collection: collection.Name()},
	}
}

// Sync runs fetch and swaps its records into the collection. On any error
// the collection keeps its prior content.
func (s *Synchronizer[T]) Sync(ctx context.Context, fetch FetchFunc[T]) (SyncResult, error) {
	name := s.collection.Name()
	started := time.Now()

	release, err := s.locker.Acquire(ctx, name)
	if err != nil {
		return SyncResult{}, s.fail(started, model.E(model.KindLock, "sync "+name, err))
	}
	defer release()

	batch, err := fetch(ctx)
	if err != nil {
		return SyncResult{}, s.fail(started, fmt.Errorf("sync %s: %w", name, err))
	}

	if err := s.collection.ReplaceAll(ctx, batch.Records); err != nil {
		return SyncResult{}, s.fail(started, fmt.Errorf("sync %s: %w", name, err))
	}

	result := SyncResult{
		Collection:  name,
		Records:     len(batch.Records),
		Skipped:     batch.Skipped,
		RemoteTotal: batch.Total,
		StartedAt:   started,
		Duration:    time.Since(started),
	}

	s.mu.Lock()
	s.status.Attempts++
	s.status.LastAttempt = started
	s.status.LastSuccess = started
	s.status.LastRecords = result.Records
	s.status.LastSkipped = result.Skipped
	s.status.LastError = ""
	s.status.LastErrorKind = ""
	s.mu.Unlock()

	log.Printf("[Synchronizer] %s replaced: %d records, %d skipped, remote total %d (%v)",
		name, result.Records, result.Skipped, result.RemoteTotal, result.Duration.Round(time.Millisecond))
	return result, nil
}

func (s *Synchronizer[T]) fail(started time.Time, err error) error {
	s.mu.Lock()
	s.status.Attempts++
	s.status.Failures++
	s.status.LastAttempt = started
	s.status.LastError = err.Error()
	s.status.LastErrorKind = model.KindOf(err)
	s.mu.Unlock()
	return err
}

// Status returns a copy of the sync status.
func (s *Synchronizer[T]) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
