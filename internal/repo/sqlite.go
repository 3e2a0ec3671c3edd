package repo

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// sqliteRecordRepo is the SQLite implementation of RecordRepo.
// Decimal columns are stored as TEXT so values round-trip exactly.
type sqliteRecordRepo struct {
	db *sql.DB
}

// NewSQLiteRecordRepo constructs a RecordRepo backed by an open SQLite handle.
// The schema must already be migrated (see Open).
func NewSQLiteRecordRepo(db *sql.DB) RecordRepo {
	return &sqliteRecordRepo{db: db}
}

// Load returns all entries for key ordered by serial.
func (r *sqliteRecordRepo) Load(ctx context.Context, key domain.RecordKey) ([]domain.Entry, error) {
	const q = `
		SELECT serial, date_label, details, purpose, distance_km, amount
		FROM record_entries
		WHERE user_email = ? AND month = ?
		ORDER BY serial`

	rows, err := r.db.QueryContext(ctx, q, key.User, key.Month.String())
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
func (r *sqliteRecordRepo) Save(ctx context.Context, key domain.RecordKey, entries []domain.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_entries WHERE user_email = ? AND month = ?`,
		key.User, key.Month.String(),
	); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: delete: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO record_entries (user_email, month, serial, date_label, details, purpose, distance_km, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			key.User, key.Month.String(), e.Serial, e.DateLabel, e.Details, e.Purpose,
			e.DistanceKM.String(), e.Amount.String(),
		); err != nil {
			return fmt.Errorf("repo.RecordRepo.Save: insert serial %d: %w", e.Serial, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: commit: %w", err)
	}
	return nil
}
