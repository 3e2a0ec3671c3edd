package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup. Begin on a pgx.Tx opens a
// savepoint, so Save stays atomic in both cases.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgRecordRepo is the Postgres implementation of RecordRepo.
type pgRecordRepo struct {
	db db
}

// NewPGRecordRepo constructs a RecordRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPGRecordRepo(db db) RecordRepo {
	return &pgRecordRepo{db: db}
}

// Load returns all entries for key ordered by serial.
// Numeric columns are read back as text so decimals round-trip exactly.
func (r *pgRecordRepo) Load(ctx context.Context, key domain.RecordKey) ([]domain.Entry, error) {
	const q = `
		SELECT serial, date_label, details, purpose, distance_km::text, amount::text
		FROM record_entries
		WHERE user_email = @user AND month = @month
		ORDER BY serial`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user": key.User, "month": key.Month.String()})
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Load: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.RecordRepo.Load: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Load: rows: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("repo.RecordRepo.Load: %w", domain.ErrNotFound)
	}
	return entries, nil
}

// Save deletes every row for key and inserts entries in one transaction.
func (r *pgRecordRepo) Save(ctx context.Context, key domain.RecordKey, entries []domain.Entry) error {
	const del = `DELETE FROM record_entries WHERE user_email = @user AND month = @month`
	const ins = `
		INSERT INTO record_entries (user_email, month, serial, date_label, details, purpose, distance_km, amount)
		VALUES (@user, @month, @serial, @date_label, @details, @purpose, (@distance_km::text)::numeric, (@amount::text)::numeric)`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	keyArgs := pgx.NamedArgs{"user": key.User, "month": key.Month.String()}
	if _, err := tx.Exec(ctx, del, keyArgs); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: delete: %w", err)
	}

	for _, e := range entries {
		args := pgx.NamedArgs{
			"user":        key.User,
			"month":       key.Month.String(),
			"serial":      e.Serial,
			"date_label":  e.DateLabel,
			"details":     e.Details,
			"purpose":     e.Purpose,
			"distance_km": e.DistanceKM.String(),
			"amount":      e.Amount.String(),
		}
		if _, err := tx.Exec(ctx, ins, args); err != nil {
			return fmt.Errorf("repo.RecordRepo.Save: insert serial %d: %w", e.Serial, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: commit: %w", err)
	}
	return nil
}

// scanner is satisfied by pgx.Row, pgx.Rows and *sql.Rows, allowing
// scanEntry to be shared by the Postgres and SQLite repos.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry maps a single row into a domain.Entry.
// A numeric column that does not parse is reported as domain.ErrCorrupt.
func scanEntry(s scanner) (domain.Entry, error) {
	var (
		e                domain.Entry
		distance, amount string
	)
	if err := s.Scan(&e.Serial, &e.DateLabel, &e.Details, &e.Purpose, &distance, &amount); err != nil {
		return domain.Entry{}, err
	}

	var err error
	if e.DistanceKM, err = decimal.NewFromString(distance); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: distance_km %q", domain.ErrCorrupt, distance)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: amount %q", domain.ErrCorrupt, amount)
	}
	return e, nil
}
