package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"restaurant-orders/internal/logger"
)

// SQLiteDriverName is the database/sql driver registered by modernc.org/sqlite
const SQLiteDriverName = "sqlite"

// SQLite wraps a single-connection SQLite database.
// Write transactions start with BEGIN IMMEDIATE, so writers are serialized by the file lock.
type SQLite struct {
	DB     *sql.DB
	logger *logger.Logger
}

// OpenSQLite opens (creating if needed) the SQLite database at path
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLite, error) {
	dsn := path + "?_txlock=immediate&_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLite{DB: db, logger: log}, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// Ping tests the database connection
func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
