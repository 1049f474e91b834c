package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"axie-market-cache/internal/model"
)

// dialect captures what differs between the SQL engines.
type dialect struct {
	name string
	// bind returns the placeholder for the n-th (1-based) argument.
	bind func(n int) string
	// tableDDL returns the CREATE TABLE statement for a collection table.
	tableDDL func(table string) string
	// sizeQuery returns the on-disk size of the database, if supported.
	sizeQuery string
	// exclusive serializes every statement through one lock (single writer engines).
	exclusive bool
}

// SQLStore implements Store on a database/sql connection pool. Each
// collection is a table of JSON documents ordered by seq.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	mu      *sync.RWMutex

	latest  *sqlCollection[model.Unit]
	sold    *sqlCollection[model.SoldRecord]
	decoded *sqlCollection[model.DecodedUnit]
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	for _, table := range []string{LatestUnitsCollection, RecentlySoldCollection, DecodedUnitsCollection} {
		if _, err := db.Exec(d.tableDDL(table)); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	mu := &sync.RWMutex{}
	return &SQLStore{
		db:      db,
		dialect: d,
		mu:      mu,
		latest:  &sqlCollection[model.Unit]{db: db, table: LatestUnitsCollection, dialect: d, mu: mu},
		sold:    &sqlCollection[model.SoldRecord]{db: db, table: RecentlySoldCollection, dialect: d, mu: mu},
		decoded: &sqlCollection[model.DecodedUnit]{db: db, table: DecodedUnitsCollection, dialect: d, mu: mu},
	}, nil
}

func (s *SQLStore) LatestUnits() Collection[model.Unit] { return s.latest }
func (s *SQLStore) RecentlySold() Collection[model.SoldRecord] { return s.sold }
func (s *SQLStore) DecodedUnits() Collection[model.DecodedUnit] { return s.decoded }

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return model.E(model.KindPersistence, s.dialect.name+".Ping", err)
	}
	return nil
}

// GetStats returns record counts, database size and pool statistics.
func (s *SQLStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["engine"] = s.dialect.name

	counts := make(map[string]int64)
	for _, c := range []interface {
		Name() string
		Count(context.Context) (int64, error)
	}{s.latest, s.sold, s.decoded} {
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[c.Name()] = n
	}
	stats["collections"] = counts

	if s.dialect.sizeQuery != "" {
		var size int64
		if err := s.db.QueryRowContext(ctx, s.dialect.sizeQuery).Scan(&size); err == nil {
			stats["db_size_bytes"] = size
		}
	}

	dbStats := s.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}

	return stats, nil
}

// Close closes the database connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type sqlCollection[T Record] struct {
	db      *sql.DB
	table   string
	dialect dialect
	mu      *sync.RWMutex
}

func (c *sqlCollection[T]) Name() string { return c.table }

func (c *sqlCollection[T]) lock() func() {
	if !c.dialect.exclusive {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (c *sqlCollection[T]) rlock() func() {
	if !c.dialect.exclusive {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

// FindAll returns every record ordered by insertion position.
func (c *sqlCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	op := c.dialect.name + ".FindAll"
	defer c.rlock()()

	rows, err := c.db.QueryContext(ctx, `SELECT doc FROM `+c.table+` ORDER BY seq`)
	if err != nil {
		return nil, model.E(model.KindPersistence, op, fmt.Errorf("failed to select %s: %w", c.table, err))
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, model.E(model.KindPersistence, op, err)
		}
		var rec T
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, model.E(model.KindPersistence, op, fmt.Errorf("failed to decode %s row: %w", c.table, err))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, model.E(model.KindPersistence, op, err)
	}
	return out, nil
}

// ReplaceAll deletes and re-inserts the table content inside one
// transaction. Any failure rolls the table back to its previous content.
func (c *sqlCollection[T]) ReplaceAll(ctx context.Context, records []T) error {
	op := c.dialect.name + ".ReplaceAll"

	docs := make([][]byte, len(records))
	for i, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return model.E(model.KindPersistence, op, fmt.Errorf("failed to encode record %s: %w", rec.RecordID(), err))
		}
		docs[i] = doc
	}

	defer c.lock()()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+c.table); err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to clear %s: %w", c.table, err))
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (seq, record_id, doc, synced_at) VALUES (%s, %s, %s, %s)`,
		c.table, c.dialect.bind(1), c.dialect.bind(2), c.dialect.bind(3), c.dialect.bind(4)))
	if err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	syncedAt := time.Now().UTC()
	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, i, rec.RecordID(), string(docs[i]), syncedAt); err != nil {
			return model.E(model.KindPersistence, op, fmt.Errorf("failed to insert %s into %s: %w", rec.RecordID(), c.table, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return model.E(model.KindPersistence, op, fmt.Errorf("failed to commit transaction: %w", err))
	}

	log.Printf("[SQLStore] Replaced %s with %d records (%s)", c.table, len(records), c.dialect.name)
	return nil
}

// Count returns the number of rows.
func (c *sqlCollection[T]) Count(ctx context.Context) (int64, error) {
	defer c.rlock()()

	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(&n); err != nil {
		return 0, model.E(model.KindPersistence, c.dialect.name+".Count", err)
	}
	return n, nil
}

var _ Store = (*SQLStore)(nil)
