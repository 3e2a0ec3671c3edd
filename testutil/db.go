// Package testutil provides shared database helpers for storage tests.
// Postgres helpers skip automatically when TEST_DATABASE_URL is not set;
// SQLite helpers always run against a file under t.TempDir.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql

	"github.com/pkordes/petrol-logbook/internal/repo"
)

// DSN returns TEST_DATABASE_URL, skipping the test if it is not set.
func DSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres test")
	}
	return dsn
}

// NewPool returns a pinged *pgxpool.Pool for the test database, closed
// when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), DSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB returns a database/sql handle on the test database via the pgx
// driver, for goose. Closed when the test finishes.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := openPing(DSN(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB is NewSQLDB for TestMain, where no *testing.T exists.
// Callers close the returned *sql.DB.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := openPing(dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: " + err.Error())
	}
	return db
}

// NewSQLite opens a migrated SQLite database in a fresh temp directory.
func NewSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repo.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "petrol.db"))
	if err != nil {
		t.Fatalf("testutil.NewSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func openPing(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
