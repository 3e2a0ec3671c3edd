package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/repo"
	"github.com/pkordes/petrol-logbook/internal/service"
)

// mockRecordRepo is a hand-written test double for repo.RecordRepo.
// Each method is a function field; set only the ones your test needs.
type mockRecordRepo struct {
	load func(ctx context.Context, key domain.RecordKey) ([]domain.Entry, error)
	save func(ctx context.Context, key domain.RecordKey, entries []domain.Entry) error
}

func (m *mockRecordRepo) Load(ctx context.Context, key domain.RecordKey) ([]domain.Entry, error) {
	return m.load(ctx, key)
}
func (m *mockRecordRepo) Save(ctx context.Context, key domain.RecordKey, entries []domain.Entry) error {
	return m.save(ctx, key, entries)
}

// compile-time check: mockRecordRepo must satisfy repo.RecordRepo.
var _ repo.RecordRepo = (*mockRecordRepo)(nil)

// memRepo backs a mockRecordRepo with a map, behaving like a real store.
func memRepo() *mockRecordRepo {
	var mu sync.Mutex
	data := map[domain.RecordKey][]domain.Entry{}
	return &mockRecordRepo{
		load: func(_ context.Context, key domain.RecordKey) ([]domain.Entry, error) {
			mu.Lock()
			defer mu.Unlock()
			es, ok := data[key]
			if !ok {
				return nil, domain.ErrNotFound
			}
			return append([]domain.Entry(nil), es...), nil
		},
		save: func(_ context.Context, key domain.RecordKey, entries []domain.Entry) error {
			mu.Lock()
			defer mu.Unlock()
			data[key] = append([]domain.Entry(nil), entries...)
			return nil
		},
	}
}

// ---- helpers ---------------------------------------------------------------

var octNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time { return func() time.Time { return octNow } }

func testKey() domain.RecordKey {
	return domain.RecordKey{User: "asha@example.com", Month: domain.MonthOf(octNow)}
}

func input(details string, total, baseline int64) domain.EntryInput {
	return domain.EntryInput{
		Details:    details,
		Purpose:    "Client visit",
		TotalKM:    decimal.NewFromInt(total),
		BaselineKM: decimal.NewFromInt(baseline),
	}
}

func newRecords(r repo.RecordRepo) *service.RecordService {
	return service.NewRecordService(r, service.WithClock(fixedClock()))
}

func dec(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

// ---- Load tests ------------------------------------------------------------

func TestRecordService_Load_MissingIsEmpty(t *testing.T) {
	svc := newRecords(memRepo())

	rs, err := svc.Load(context.Background(), testKey())

	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, testKey(), rs.Key)
}

func TestRecordService_Load_CorruptIsEmptyAndWarns(t *testing.T) {
	var logs bytes.Buffer
	r := &mockRecordRepo{
		load: func(_ context.Context, _ domain.RecordKey) ([]domain.Entry, error) {
			return nil, fmt.Errorf("bad header: %w", domain.ErrCorrupt)
		},
	}
	svc := service.NewRecordService(r, service.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	rs, err := svc.Load(context.Background(), testKey())

	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "component=records")
}

func TestRecordService_Load_OtherErrorsPropagate(t *testing.T) {
	repoErr := errors.New("disk on fire")
	r := &mockRecordRepo{
		load: func(_ context.Context, _ domain.RecordKey) ([]domain.Entry, error) { return nil, repoErr },
	}

	_, err := newRecords(r).Load(context.Background(), testKey())

	assert.ErrorIs(t, err, repoErr)
}

func TestRecordService_Load_OrdersBySerial(t *testing.T) {
	r := &mockRecordRepo{
		load: func(_ context.Context, _ domain.RecordKey) ([]domain.Entry, error) {
			return []domain.Entry{{Serial: 2, Details: "b"}, {Serial: 1, Details: "a"}}, nil
		},
	}

	rs, err := newRecords(r).Load(context.Background(), testKey())

	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "a", rs.Entries[0].Details)
}

// ---- Create tests ----------------------------------------------------------

func TestRecordService_Create_ComputesAndPersists(t *testing.T) {
	r := memRepo()
	svc := newRecords(r)

	got, err := svc.Create(context.Background(), testKey(), input("Office to site", 20, 8))

	require.NoError(t, err)
	assert.Equal(t, 1, got.Serial)
	assert.Equal(t, "19-Oct", got.DateLabel)
	dec(t, 12, got.DistanceKM)
	dec(t, 48, got.Amount)

	stored, err := r.Load(context.Background(), testKey())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, got, stored[0])
}

func TestRecordService_Create_ClampsBelowBaseline(t *testing.T) {
	svc := newRecords(memRepo())

	got, err := svc.Create(context.Background(), testKey(), input("Short hop", 5, 8))

	require.NoError(t, err)
	dec(t, 0, got.DistanceKM)
	dec(t, 0, got.Amount)
}

func TestRecordService_Create_SerialsFollowCount(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		got, err := svc.Create(ctx, testKey(), input(fmt.Sprintf("trip %d", i), 10, 0))
		require.NoError(t, err)
		assert.Equal(t, i, got.Serial)
	}
}

func TestRecordService_Create_ValidationPersistsNothing(t *testing.T) {
	saved := false
	r := &mockRecordRepo{
		load: func(_ context.Context, _ domain.RecordKey) ([]domain.Entry, error) { return nil, domain.ErrNotFound },
		save: func(_ context.Context, _ domain.RecordKey, _ []domain.Entry) error { saved = true; return nil },
	}
	svc := newRecords(r)

	cases := []struct {
		name string
		in   domain.EntryInput
		want error
	}{
		{"empty details", input("  ", 10, 0), domain.ErrEmptyDetails},
		{"zero total", input("x", 0, 0), domain.ErrTotalOutOfRange},
		{"total above max", input("x", 1000, 0), domain.ErrTotalOutOfRange},
		{"negative baseline", input("x", 10, -1), domain.ErrNegativeBaseline},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testKey(), tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.False(t, saved)
}

func TestRecordService_Create_SaveError(t *testing.T) {
	repoErr := errors.New("read-only filesystem")
	r := memRepo()
	r.save = func(_ context.Context, _ domain.RecordKey, _ []domain.Entry) error { return repoErr }

	_, err := newRecords(r).Create(context.Background(), testKey(), input("x", 10, 0))

	assert.ErrorIs(t, err, repoErr)
}

// ---- Update tests ----------------------------------------------------------

func TestRecordService_Update_InPlace(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	for _, d := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, testKey(), input(d, 10, 0))
		require.NoError(t, err)
	}

	second, err := svc.Get(ctx, testKey(), 2)
	require.NoError(t, err)

	in := input("second, revised", 30, 10)
	got, err := svc.Update(ctx, testKey(), second, in)

	require.NoError(t, err)
	assert.Equal(t, 2, got.Serial)
	assert.Equal(t, "19-Oct", got.DateLabel)
	dec(t, 20, got.DistanceKM)
	dec(t, 80, got.Amount)

	rs, err := svc.Load(ctx, testKey())
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())
	assert.Equal(t, "first", rs.Entries[0].Details)
	assert.Equal(t, "second, revised", rs.Entries[1].Details)
	assert.Equal(t, "third", rs.Entries[2].Details)
}

func TestRecordService_Update_ExplicitDateLabel(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	created, err := svc.Create(ctx, testKey(), input("x", 10, 0))
	require.NoError(t, err)

	in := input("x", 10, 0)
	in.DateLabel = "01-Oct"
	got, err := svc.Update(ctx, testKey(), created, in)

	require.NoError(t, err)
	assert.Equal(t, "01-Oct", got.DateLabel)
}

func TestRecordService_Update_NotFound(t *testing.T) {
	svc := newRecords(memRepo())

	_, err := svc.Update(context.Background(), testKey(), domain.Entry{Serial: 7}, input("x", 10, 0))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordService_Update_Validation(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	created, err := svc.Create(ctx, testKey(), input("x", 10, 0))
	require.NoError(t, err)

	_, err = svc.Update(ctx, testKey(), created, input("x", 0, 0))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---- Delete tests ----------------------------------------------------------

func TestRecordService_Delete_Renumbers(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c", "d"} {
		_, err := svc.Create(ctx, testKey(), input(d, 10, 0))
		require.NoError(t, err)
	}

	b, err := svc.Get(ctx, testKey(), 2)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, testKey(), b))

	rs, err := svc.Load(ctx, testKey())
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())
	for i, want := range []string{"a", "c", "d"} {
		assert.Equal(t, i+1, rs.Entries[i].Serial)
		assert.Equal(t, want, rs.Entries[i].Details)
	}
}

func TestRecordService_Delete_NotFound(t *testing.T) {
	svc := newRecords(memRepo())

	err := svc.Delete(context.Background(), testKey(), domain.Entry{Serial: 1})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordService_Delete_LastEntryLeavesEmptySet(t *testing.T) {
	r := memRepo()
	svc := newRecords(r)
	ctx := context.Background()
	only, err := svc.Create(ctx, testKey(), input("only", 10, 0))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, testKey(), only))

	stored, err := r.Load(ctx, testKey())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

// ---- Aggregate and concurrency ---------------------------------------------

func TestRecordService_Aggregate(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, testKey(), input("a", 20, 8))
	require.NoError(t, err)
	_, err = svc.Create(ctx, testKey(), input("b", 5, 8))
	require.NoError(t, err)
	_, err = svc.Create(ctx, testKey(), input("c", 18, 8))
	require.NoError(t, err)

	got, err := svc.Aggregate(ctx, testKey())
	require.NoError(t, err)
	dec(t, 22, got.DistanceKM)
	dec(t, 88, got.Amount)

	again, err := svc.Aggregate(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestRecordService_ConcurrentCreatesKeepEveryEntry(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(ctx, testKey(), input(fmt.Sprintf("trip %d", i), 10, 0))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rs, err := svc.Load(ctx, testKey())
	require.NoError(t, err)
	require.Equal(t, 20, rs.Len())
	for i, e := range rs.Entries {
		assert.Equal(t, i+1, e.Serial)
	}
}

func TestRecordService_CurrentMonth(t *testing.T) {
	svc := newRecords(memRepo())

	assert.Equal(t, domain.Month{Year: 2026, Month: time.October}, svc.CurrentMonth())
	dec(t, 4, svc.Rate())
}

// ---- Stale targets ---------------------------------------------------------

func TestRecordService_Update_LastSerialGoneAfterEarlierDelete(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, testKey(), input(d, 10, 0))
		require.NoError(t, err)
	}
	opened, err := svc.Get(ctx, testKey(), 3)
	require.NoError(t, err)
	first, err := svc.Get(ctx, testKey(), 1)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, testKey(), first))

	_, err = svc.Update(ctx, testKey(), opened, input("c, revised", 20, 0))

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordService_Update_StaleWhenEntryShifts(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, testKey(), input(d, 10, 0))
		require.NoError(t, err)
	}
	opened, err := svc.Get(ctx, testKey(), 2)
	require.NoError(t, err)
	first, err := svc.Get(ctx, testKey(), 1)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, testKey(), first))

	_, err = svc.Update(ctx, testKey(), opened, input("b, revised", 20, 0))

	require.ErrorIs(t, err, domain.ErrStaleEntry)
	assert.ErrorIs(t, err, domain.ErrConflict)
	rs, err := svc.Load(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, []string{rs.Entries[0].Details, rs.Entries[1].Details})
}

func TestRecordService_Delete_StaleWhenEntryEditedElsewhere(t *testing.T) {
	svc := newRecords(memRepo())
	ctx := context.Background()
	opened, err := svc.Create(ctx, testKey(), input("a", 10, 0))
	require.NoError(t, err)
	_, err = svc.Update(ctx, testKey(), opened, input("a, revised", 12, 0))
	require.NoError(t, err)

	err = svc.Delete(ctx, testKey(), opened)

	require.ErrorIs(t, err, domain.ErrStaleEntry)
	rs, err := svc.Load(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
}

// ---- Precision through a real store ----------------------------------------

func TestRecordService_FractionalDistanceSurvivesXLSX(t *testing.T) {
	r, err := repo.NewXLSXRecordRepo(t.TempDir())
	require.NoError(t, err)
	svc := newRecords(r)
	ctx := context.Background()
	in := input("Office to Thane", 0, 8)
	in.TotalKM = decimal.RequireFromString("20.123")

	created, err := svc.Create(ctx, testKey(), in)
	require.NoError(t, err)
	rs, err := svc.Load(ctx, testKey())
	require.NoError(t, err)

	require.Equal(t, 1, rs.Len())
	loaded := rs.Entries[0]
	assert.True(t, created.Same(loaded), "created %+v, loaded %+v", created, loaded)
	assert.True(t, loaded.Amount.Equal(loaded.DistanceKM.Mul(domain.RatePerKM)))
}

func TestRecordService_Create_RejectsExcessPrecision(t *testing.T) {
	r := memRepo()
	saved := false
	save := r.save
	r.save = func(ctx context.Context, key domain.RecordKey, entries []domain.Entry) error {
		saved = true
		return save(ctx, key, entries)
	}
	in := input("Office to Thane", 0, 8)
	in.TotalKM = decimal.RequireFromString("20.12345678901234567891")

	_, err := newRecords(r).Create(context.Background(), testKey(), in)

	require.ErrorIs(t, err, domain.ErrKMPrecision)
	assert.False(t, saved)
}
