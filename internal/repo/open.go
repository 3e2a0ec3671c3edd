package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/petrol-logbook/migrations"
)

// Backend names a RecordRepo implementation.
type Backend string

const (
	BackendXLSX     Backend = "xlsx"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend     Backend
	DataDir     string // xlsx
	DatabaseURL string // postgres
	SQLitePath  string // sqlite
}

// Store is an opened backend. Close releases its connections.
type Store struct {
	Records RecordRepo
	Close   func()
}

// Open constructs the configured backend. SQL backends are pinged and
// migrated to the latest schema before Open returns.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendXLSX, "":
		r, err := NewXLSXRecordRepo(opts.DataDir)
		if err != nil {
			return Store{}, err
		}
		return Store{Records: r, Close: func() {}}, nil

	case BackendPostgres:
		// pgxpool manages a pool of Postgres connections.
		// New() does not open connections immediately; Ping does.
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return Store{}, fmt.Errorf("repo.Open: create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return Store{}, fmt.Errorf("repo.Open: ping: %w", err)
		}
		sqlDB := stdlib.OpenDBFromPool(pool)
		if err := Migrate(ctx, goose.DialectPostgres, sqlDB); err != nil {
			sqlDB.Close()
			pool.Close()
			return Store{}, err
		}
		return Store{
			Records: NewPGRecordRepo(pool),
			Close: func() {
				sqlDB.Close()
				pool.Close()
			},
		}, nil

	case BackendSQLite:
		db, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return Store{}, err
		}
		return Store{Records: NewSQLiteRecordRepo(db), Close: func() { db.Close() }}, nil
	}
	return Store{}, fmt.Errorf("repo.Open: unsupported backend %q", opts.Backend)
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies all migrations.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: open: %w", err)
	}
	// A single connection serializes writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: ping: %w", err)
	}
	if err := Migrate(ctx, goose.DialectSQLite3, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies all pending migrations for dialect.
func Migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB) error {
	fsys := migrations.Postgres()
	if dialect == goose.DialectSQLite3 {
		fsys = migrations.SQLite()
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("repo.Migrate: create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("repo.Migrate: up: %w", err)
	}
	return nil
}
