package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Tables names the three sink tables
type Tables struct {
	Emails      string
	Attachments string
	Blobs       string
}

// DefaultTables returns the default table names
func DefaultTables() Tables {
	return Tables{Emails: "emails", Attachments: "attachments", Blobs: "attachment_blobs"}
}

// DB wraps sqlx.DB
type DB struct {
	*sqlx.DB
	tables Tables
}

// New creates a new database connection. A postgres:// URL selects
// PostgreSQL, anything else is treated as a SQLite file path.
func New(dsn string, tables Tables) (*DB, error) {
	if isPostgres(dsn) {
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &DB{DB: db, tables: tables}, nil
	}

	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Connect with WAL mode and foreign keys enabled
	db, err := sqlx.Connect("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return &DB{DB: db, tables: tables}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecContext(ctx, db.schema())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (db *DB) isPostgres() bool {
	return db.DriverName() == "postgres"
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
