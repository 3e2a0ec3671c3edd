// Package service contains the business logic for the petrol logbook.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No storage code lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/metrics"
	"github.com/pkordes/petrol-logbook/internal/repo"
)

// DateLabelLayout formats the date stamped on new entries, e.g. "19-Oct".
const DateLabelLayout = "02-Jan"

// RecordService owns the RecordSet lifecycle: load, create, update, delete,
// renumbering and aggregates. It never caches a RecordSet; every call loads
// from the repo, so a failed write cannot leave memory and storage apart.
type RecordService struct {
	repo    repo.RecordRepo
	rate    decimal.Decimal
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Metrics
	locks   *keyedMutex
}

// NewRecordService constructs a RecordService backed by the provided repo,
// paying domain.RatePerKM.
func NewRecordService(r repo.RecordRepo, opts ...Option) *RecordService {
	o := buildOptions(opts)
	return &RecordService{
		repo:    r,
		rate:    domain.RatePerKM,
		now:     o.now,
		log:     o.log.With("component", "records"),
		metrics: o.metrics,
		locks:   newKeyedMutex(),
	}
}

// Rate returns the amount paid per reimbursable kilometre.
func (s *RecordService) Rate() decimal.Decimal { return s.rate }

// CurrentMonth returns the calendar month new entries are filed under.
func (s *RecordService) CurrentMonth() domain.Month {
	return domain.MonthOf(s.now())
}

// Load returns the RecordSet for key ordered by serial.
// A missing set is empty. A set that cannot be parsed is also returned
// empty, with a warning logged; the stored data is left untouched until the
// next successful write replaces it. Other repo errors are returned.
func (s *RecordService) Load(ctx context.Context, key domain.RecordKey) (domain.RecordSet, error) {
	entries, err := s.repo.Load(ctx, key)
	switch {
	case err == nil:
		return domain.NewRecordSet(key, entries), nil
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewRecordSet(key, nil), nil
	case errors.Is(err, domain.ErrCorrupt):
		s.log.WarnContext(ctx, "unreadable record set, starting empty",
			"user", key.User, "month", key.Month.String(), "error", err)
		return domain.NewRecordSet(key, nil), nil
	default:
		return domain.RecordSet{}, fmt.Errorf("service.RecordService.Load: %w", err)
	}
}

// Get returns the entry with the given serial.
// Returns domain.ErrNotFound if the serial is not in the set.
func (s *RecordService) Get(ctx context.Context, key domain.RecordKey, serial int) (domain.Entry, error) {
	rs, err := s.Load(ctx, key)
	if err != nil {
		return domain.Entry{}, err
	}
	e, ok := rs.Find(serial)
	if !ok {
		return domain.Entry{}, fmt.Errorf("service.RecordService.Get: serial %d: %w", serial, domain.ErrNotFound)
	}
	return e, nil
}

// Create validates in, computes the reimbursable distance and amount,
// appends the entry and persists the whole set.
// Returns a domain.ErrValidation-wrapping error naming the violated rule;
// nothing is persisted in that case.
func (s *RecordService) Create(ctx context.Context, key domain.RecordKey, in domain.EntryInput) (domain.Entry, error) {
	if err := in.Validate(); err != nil {
		s.metrics.Mutation("create", metrics.OutcomeInvalid)
		return domain.Entry{}, fmt.Errorf("service.RecordService.Create: %w", err)
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	rs, err := s.Load(ctx, key)
	if err != nil {
		s.metrics.Mutation("create", metrics.OutcomeError)
		return domain.Entry{}, err
	}

	e := s.build(in)
	e.DateLabel = s.now().Format(DateLabelLayout)
	created := rs.Append(e)

	if err := s.persist(ctx, rs); err != nil {
		s.metrics.Mutation("create", metrics.OutcomeError)
		return domain.Entry{}, fmt.Errorf("service.RecordService.Create: %w", err)
	}
	s.metrics.Mutation("create", metrics.OutcomeOK)
	return created, nil
}

// Update applies the same validation and computation as Create to the entry
// opened as want, in place. An empty DateLabel keeps the stored one.
// Returns domain.ErrNotFound if want.Serial is not in the set and
// domain.ErrStaleEntry if the entry at that serial no longer matches want.
func (s *RecordService) Update(ctx context.Context, key domain.RecordKey, want domain.Entry, in domain.EntryInput) (domain.Entry, error) {
	if err := in.Validate(); err != nil {
		s.metrics.Mutation("update", metrics.OutcomeInvalid)
		return domain.Entry{}, fmt.Errorf("service.RecordService.Update: %w", err)
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	rs, err := s.Load(ctx, key)
	if err != nil {
		s.metrics.Mutation("update", metrics.OutcomeError)
		return domain.Entry{}, err
	}
	current, err := checkTarget(rs, want)
	if err != nil {
		s.metrics.Mutation("update", metrics.OutcomeInvalid)
		return domain.Entry{}, fmt.Errorf("service.RecordService.Update: %w", err)
	}

	e := s.build(in)
	e.DateLabel = current.DateLabel
	if in.DateLabel != "" {
		e.DateLabel = in.DateLabel
	}
	updated, err := rs.Replace(want.Serial, e)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("service.RecordService.Update: %w", err)
	}

	if err := s.persist(ctx, rs); err != nil {
		s.metrics.Mutation("update", metrics.OutcomeError)
		return domain.Entry{}, fmt.Errorf("service.RecordService.Update: %w", err)
	}
	s.metrics.Mutation("update", metrics.OutcomeOK)
	return updated, nil
}

// Delete removes the entry opened as want, renumbers the remaining entries
// to 1..n in their existing order and persists the set.
// Later entries shift down one serial, so anyone holding one of them gets
// domain.ErrStaleEntry on their next Update or Delete.
// Returns domain.ErrNotFound if want.Serial is not in the set and
// domain.ErrStaleEntry if the entry at that serial no longer matches want.
func (s *RecordService) Delete(ctx context.Context, key domain.RecordKey, want domain.Entry) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	rs, err := s.Load(ctx, key)
	if err != nil {
		s.metrics.Mutation("delete", metrics.OutcomeError)
		return err
	}
	if _, err := checkTarget(rs, want); err != nil {
		s.metrics.Mutation("delete", metrics.OutcomeInvalid)
		return fmt.Errorf("service.RecordService.Delete: %w", err)
	}
	if _, err := rs.Remove(want.Serial); err != nil {
		return fmt.Errorf("service.RecordService.Delete: %w", err)
	}

	if err := s.persist(ctx, rs); err != nil {
		s.metrics.Mutation("delete", metrics.OutcomeError)
		return fmt.Errorf("service.RecordService.Delete: %w", err)
	}
	s.metrics.Mutation("delete", metrics.OutcomeOK)
	return nil
}

// Aggregate returns the total distance and amount for key, recomputed from
// the stored set on every call.
func (s *RecordService) Aggregate(ctx context.Context, key domain.RecordKey) (domain.Totals, error) {
	rs, err := s.Load(ctx, key)
	if err != nil {
		return domain.Totals{}, err
	}
	return rs.Aggregate(), nil
}

// checkTarget returns the stored entry at want.Serial, provided it still
// holds the values want was read with.
func checkTarget(rs domain.RecordSet, want domain.Entry) (domain.Entry, error) {
	current, ok := rs.Find(want.Serial)
	if !ok {
		return domain.Entry{}, fmt.Errorf("serial %d: %w", want.Serial, domain.ErrNotFound)
	}
	if !current.Same(want) {
		return domain.Entry{}, fmt.Errorf("serial %d: %w", want.Serial, domain.ErrStaleEntry)
	}
	return current, nil
}

func (s *RecordService) build(in domain.EntryInput) domain.Entry {
	distance, amount := domain.Compute(in.TotalKM, in.BaselineKM, s.rate)
	return domain.Entry{
		Details:    in.Details,
		Purpose:    in.Purpose,
		DistanceKM: distance,
		Amount:     amount,
	}
}

// persist renumbers before writing so the stored serials are always dense.
func (s *RecordService) persist(ctx context.Context, rs domain.RecordSet) error {
	rs.Renumber()
	if err := s.repo.Save(ctx, rs.Key, rs.Entries); err != nil {
		s.log.ErrorContext(ctx, "record set write failed",
			"user", rs.Key.User, "month", rs.Key.Month.String(), "error", err)
		return err
	}
	return nil
}
