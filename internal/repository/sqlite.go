package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	bind: func(int) string { return "?" },
	tableDDL: func(table string) string {
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		seq INTEGER NOT NULL PRIMARY KEY,
		record_id TEXT NOT NULL CHECK (record_id <> ''),
		doc TEXT NOT NULL,
		synced_at DATETIME NOT NULL
	)`
	},
	sizeQuery: `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`,
	exclusive: true,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// dbPath is the path to the SQLite database file (e.g., "./data/cache.db")
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[SQLStore] Initialized SQLite database: %s", dbPath)
	return store, nil
}
