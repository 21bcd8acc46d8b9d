package database

import (
	"context"
	"database/sql"
	"fmt"

	"narrative-workers/internal/common/config"

	_ "modernc.org/sqlite"
)

// SQLiteClient is the embedded record store used by narrative-cli.
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLite opens (or creates) the database file at cfg.Path. ":memory:"
// gives a private in-memory database.
func NewSQLite(cfg config.SQLiteConfig) (*SQLiteClient, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// one writer; an in-memory database is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	return &SQLiteClient{DB: db}, nil
}

func (c *SQLiteClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
