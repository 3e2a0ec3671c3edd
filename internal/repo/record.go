// Package repo contains all persistence logic for the petrol logbook.
// A RecordSet is stored and replaced as a whole; the backends differ only in
// where the rows live (an xlsx workbook per key, Postgres, or SQLite).
// No business logic lives here, only storage and type mapping.
package repo

import (
	"context"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// RecordRepo defines the persistence operations for RecordSets.
// The service layer depends on this interface, not a concrete backend,
// which allows the service to be unit-tested with a mock.
type RecordRepo interface {
	// Load returns the stored entries for key in stored order.
	// Returns domain.ErrNotFound if nothing was ever saved for key and
	// domain.ErrCorrupt if stored data exists but cannot be parsed.
	Load(ctx context.Context, key domain.RecordKey) ([]domain.Entry, error)

	// Save replaces everything stored for key with entries.
	Save(ctx context.Context, key domain.RecordKey, entries []domain.Entry) error
}
