package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	bind: func(int) string { return "?" },
	tableDDL: func(table string) string {
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		seq INT NOT NULL PRIMARY KEY,
		record_id VARCHAR(128) NOT NULL CHECK (record_id <> ''),
		doc JSON NOT NULL,
		synced_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB`
	},
	sizeQuery: `SELECT COALESCE(SUM(data_length + index_length), 0) FROM information_schema.tables WHERE table_schema = DATABASE()`,
}

// NewMySQLStore connects to MySQL. Tables must live on a transactional
// engine; they are created as InnoDB.
func NewMySQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Println("[SQLStore] Initialized MySQL")
	return store, nil
}
