package repository

import (
	"context"
	"sync"

	"axie-market-cache/internal/model"
)

// MemoryStore keeps collections in process memory.
// Use this for development/testing or single-instance deployments.
type MemoryStore struct {
	latest  *MemoryCollection[model.Unit]
	sold    *MemoryCollection[model.SoldRecord]
	decoded *MemoryCollection[model.DecodedUnit]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		latest:  NewMemoryCollection[model.Unit](LatestUnitsCollection),
		sold:    NewMemoryCollection[model.SoldRecord](RecentlySoldCollection),
		decoded: NewMemoryCollection[model.DecodedUnit](DecodedUnitsCollection),
	}
}

func (s *MemoryStore) LatestUnits() Collection[model.Unit] { return s.latest }
func (s *MemoryStore) RecentlySold() Collection[model.SoldRecord] { return s.sold }
func (s *MemoryStore) DecodedUnits() Collection[model.DecodedUnit] { return s.decoded }
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error { return nil }

// GetStats returns record counts per collection.
func (s *MemoryStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"status": "connected",
		"collections": map[string]int64{
			s.latest.Name():  int64(len(s.latest.snapshot())),
			s.sold.Name():    int64(len(s.sold.snapshot())),
			s.decoded.Name(): int64(len(s.decoded.snapshot())),
		},
	}, nil
}

// MemoryCollection is a Collection backed by a slice swapped under a lock.
type MemoryCollection[T Record] struct {
	name    string
	mu      sync.RWMutex
	records []T
}

// NewMemoryCollection creates an empty collection.
func NewMemoryCollection[T Record](name string) *MemoryCollection[T] {
	return &MemoryCollection[T]{name: name}
}

// Name returns the collection name.
func (c *MemoryCollection[T]) Name() string { return c.name }

func (c *MemoryCollection[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

// FindAll returns a copy of the records.
func (c *MemoryCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.E(model.KindPersistence, "memory.FindAll", err)
	}
	records := c.snapshot()
	out := make([]T, len(records))
	copy(out, records)
	return out, nil
}

// ReplaceAll stages a copy of records and swaps it in.
func (c *MemoryCollection[T]) ReplaceAll(ctx context.Context, records []T) error {
	if err := ctx.Err(); err != nil {
		return model.E(model.KindPersistence, "memory.ReplaceAll", err)
	}
	staged := make([]T, len(records))
	copy(staged, records)

	c.mu.Lock()
	c.records = staged
	c.mu.Unlock()
	return nil
}

// Count returns the number of records.
func (c *MemoryCollection[T]) Count(ctx context.Context) (int64, error) {
	return int64(len(c.snapshot())), nil
}

var _ Store = (*MemoryStore)(nil)
