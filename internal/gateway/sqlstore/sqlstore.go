// Package sqlstore implements gateway.Gateway on a relational database.
// PostgreSQL (lib/pq) and SQLite (mattn/go-sqlite3) are supported; the schema
// is applied with golang-migrate from embedded migration files.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jdotsun/hierarchical-config-demo/internal/gateway"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect selects SQL placeholder style and migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

const (
	dirPermissions    = 0750
	connectionTimeout = 5 * time.Second
)

// Store implements gateway.Gateway backed by a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ gateway.Gateway = (*Store)(nil)

// New wraps an already opened database. Migrations are not run.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// OpenPostgres connects to the PostgreSQL database at databaseURL,
// configures the connection pool and verifies connectivity.
func OpenPostgres(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, Postgres), nil
}

// SQLiteConfig describes an on-disk SQLite database.
type SQLiteConfig struct {
	// Path is the database file; its directory is created when missing.
	Path string
	// BusyTimeout is the lock wait in seconds.
	BusyTimeout int
	WALMode     bool
}

// OpenSQLite opens (creating if needed) the SQLite database described by cfg
// with foreign keys enforced.
func OpenSQLite(cfg SQLiteConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, SQLite), nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Dialect reports the SQL dialect of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Reset rolls every migration back and applies them again, discarding all data.
func (s *Store) Reset() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	var (
		dir      string
		dbDriver database.Driver
		err      error
	)
	switch s.dialect {
	case Postgres:
		dir = "migrations/postgres"
		dbDriver, err = postgres.WithInstance(s.db, &postgres.Config{})
	case SQLite:
		dir = "migrations/sqlite"
		dbDriver, err = sqlite3.WithInstance(s.db, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported dialect %q", s.dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("create migration db driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(s.dialect), dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// runInTx executes fn inside a transaction, committing on success.
func (s *Store) runInTx(ctx context.Context, fn func(tx executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
