package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"axie-market-cache/internal/marketplace"

	"golang.org/x/sync/errgroup"
)

// Syncer is the part of UnitService driven by the scheduler.
type Syncer interface {
	SyncLatestUnits(ctx context.Context, p marketplace.ListingsParams) (SyncResult, error)
	SyncRecentlySold(ctx context.Context, from, size int) (SyncResult, error)
}

// SchedulerConfig holds configuration for the sync scheduler.
type SchedulerConfig struct {
	// Interval is how often both collections are synced.
	// Default: 5 minutes
	Interval time.Duration

	// InitialDelay is the wait before the first run after Start.
	InitialDelay time.Duration

	// RunTimeout bounds one scheduled run.
	// Default: 2 minutes
	RunTimeout time.Duration

	Listings marketplace.ListingsParams
	SoldFrom int
	SoldSize int
}

// SyncScheduler periodically syncs the latest-listings and recently-sold
// collections. It is the one place where sync failures are logged and
// dropped instead of returned, so a failing remote never stops the process.
type SyncScheduler struct {
	syncer    Syncer
	config    SchedulerConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewSyncScheduler creates a new sync scheduler.
func NewSyncScheduler(syncer Syncer, config SchedulerConfig) *SyncScheduler {
	if config.Interval == 0 {
		config.Interval = 5 * time.Minute
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = 2 * time.Minute
	}
	if config.SoldSize == 0 {
		config.SoldSize = 20
	}

	return &SyncScheduler{
		syncer: syncer,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the sync scheduler.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[SyncScheduler] Started - Interval: %v, Timeout: %v", s.config.Interval, s.config.RunTimeout)

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		select {
		case <-time.After(s.config.InitialDelay):
			s.runScheduled()
		case <-s.stopCh:
			return
		}
		s.run()
	}()
}

// run is the main scheduling loop.
func (s *SyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runScheduled()
		case <-s.stopCh:
			log.Printf("[SyncScheduler] Stopped")
			return
		}
	}
}

// runScheduled performs one run and only logs its outcome. Stop cancels
// the run at its next lock or transport wait.
func (s *SyncScheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := s.RunNow(ctx); err != nil {
		log.Printf("[SyncScheduler] Run finished with errors: %v", err)
	}
}

// RunNow syncs both collections concurrently and waits for both. A failure
// of one does not cancel the other; the returned error joins all failures.
func (s *SyncScheduler) RunNow(ctx context.Context) ([]SyncResult, error) {
	var (
		g       errgroup.Group
		results [2]SyncResult
		errs    [2]error
	)

	g.Go(func() error {
		results[0], errs[0] = s.guard("latest", func() (SyncResult, error) {
			return s.syncer.SyncLatestUnits(ctx, s.config.Listings)
		})
		return nil
	})
	g.Go(func() error {
		results[1], errs[1] = s.guard("recently sold", func() (SyncResult, error) {
			return s.syncer.SyncRecentlySold(ctx, s.config.SoldFrom, s.config.SoldSize)
		})
		return nil
	})
	_ = g.Wait()

	var done []SyncResult
	for i := range results {
		if errs[i] == nil {
			done = append(done, results[i])
		}
	}
	return done, errors.Join(errs[:]...)
}

// guard turns a panic inside a sync into an error.
func (s *SyncScheduler) guard(name string, fn func() (SyncResult, error)) (res SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SyncScheduler] PANIC in %s sync: %v\n%s", name, r, debug.Stack())
			err = fmt.Errorf("%s sync panicked: %v", name, r)
		}
	}()

	res, err = fn()
	if err != nil {
		log.Printf("[SyncScheduler] %s sync failed: %v", name, err)
	}
	return res, err
}

// Stop stops the sync scheduler, canceling a run in progress, and waits
// for the scheduling loop to exit.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
	s.done.Wait()
}
