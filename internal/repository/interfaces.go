package repository

import (
	"context"

	"axie-market-cache/internal/model"
)

// Collection names shared by every store.
const (
	LatestUnitsCollection  = "latest_units"
	RecentlySoldCollection = "recently_sold"
	DecodedUnitsCollection = "decoded_units"
)

// Record is a cache-resident entity with a stable identity.
type Record interface {
	RecordID() string
}

// Collection is a named set of cached records of one type.
type Collection[T Record] interface {
	// Name returns the collection name.
	Name() string

	// FindAll returns every record in insertion order.
	FindAll(ctx context.Context) ([]T, error)

	// ReplaceAll swaps the whole content of the collection for records.
	// Readers observe either the previous content or the new one, never a mix.
	ReplaceAll(ctx context.Context, records []T) error

	// Count returns the number of records.
	Count(ctx context.Context) (int64, error)
}

// Store gives access to the cache collections of one backing database.
type Store interface {
	LatestUnits() Collection[model.Unit]
	RecentlySold() Collection[model.SoldRecord]
	DecodedUnits() Collection[model.DecodedUnit]

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// GetStats returns statistics about the store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}
