package repo_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/repo"
)

var october = domain.Month{Year: 2026, Month: time.October}

func keyFor(user string) domain.RecordKey {
	return domain.RecordKey{User: user, Month: october}
}

// entriesFixture returns three entries whose amounts are consistent with
// their distances at the standard rate.
func entriesFixture() []domain.Entry {
	mk := func(serial int, date, details string, km string) domain.Entry {
		d := decimal.RequireFromString(km)
		return domain.Entry{
			Serial:     serial,
			DateLabel:  date,
			Details:    details,
			Purpose:    "Client visit",
			DistanceKM: d,
			Amount:     d.Mul(domain.RatePerKM),
		}
	}
	return []domain.Entry{
		mk(1, "01-Oct", "Office to Andheri", "12"),
		mk(2, "02-Oct", "Office to Powai and back", "7.5"),
		mk(3, "05-Oct", "Home to airport", "0"),
	}
}

// boundaryFixture holds values at the edges every backend must store
// exactly: distances at full domain.KMScale precision, the largest amount
// the rate allows, text at domain.MaxTextLen and non-Latin text.
func boundaryFixture() []domain.Entry {
	mk := func(serial int, details, purpose, km string) domain.Entry {
		d := decimal.RequireFromString(km)
		return domain.Entry{
			Serial:     serial,
			DateLabel:  "31-Oct",
			Details:    details,
			Purpose:    purpose,
			DistanceKM: d,
			Amount:     d.Mul(domain.RatePerKM),
		}
	}
	return []domain.Entry{
		mk(1, "Office to Thane", "Audit", "12.123"),
		mk(2, "Office to Vashi", "Audit", "0.001"),
		mk(3, strings.Repeat("d", domain.MaxTextLen), strings.Repeat("p", domain.MaxTextLen), "999"),
		mk(4, strings.Repeat("ठाणे", domain.MaxTextLen/4), "ग्राहक भेट", "998.999"),
	}
}

// assertEntriesEqual compares field-for-field, using decimal equality for
// numeric columns so "12" and "12.000" compare equal.
func assertEntriesEqual(t *testing.T, want, got []domain.Entry) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Serial, got[i].Serial, "serial at %d", i)
		assert.Equal(t, want[i].DateLabel, got[i].DateLabel, "date at %d", i)
		assert.Equal(t, want[i].Details, got[i].Details, "details at %d", i)
		assert.Equal(t, want[i].Purpose, got[i].Purpose, "purpose at %d", i)
		assert.True(t, want[i].DistanceKM.Equal(got[i].DistanceKM), "distance at %d: want %s got %s", i, want[i].DistanceKM, got[i].DistanceKM)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "amount at %d: want %s got %s", i, want[i].Amount, got[i].Amount)
	}
}

// runRecordRepoContract exercises the behaviour every backend must share.
func runRecordRepoContract(t *testing.T, newRepo func(t *testing.T) repo.RecordRepo) {
	t.Run("load missing returns ErrNotFound", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.Load(context.Background(), keyFor("nobody@example.com"))

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		want := entriesFixture()

		require.NoError(t, r.Save(ctx, keyFor("asha@example.com"), want))
		got, err := r.Load(ctx, keyFor("asha@example.com"))

		require.NoError(t, err)
		assertEntriesEqual(t, want, got)
	})

	t.Run("values at storage limits round-trip", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		want := boundaryFixture()

		require.NoError(t, r.Save(ctx, keyFor("asha@example.com"), want))
		got, err := r.Load(ctx, keyFor("asha@example.com"))

		require.NoError(t, err)
		assertEntriesEqual(t, want, got)
		for i, e := range got {
			assert.True(t, e.Amount.Equal(e.DistanceKM.Mul(domain.RatePerKM)), "amount at %d recomputes from distance", i)
		}
	})

	t.Run("save replaces the whole set", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		key := keyFor("asha@example.com")
		all := entriesFixture()

		require.NoError(t, r.Save(ctx, key, all))
		shorter := []domain.Entry{all[0], all[2]}
		shorter[1].Serial = 2
		require.NoError(t, r.Save(ctx, key, shorter))

		got, err := r.Load(ctx, key)
		require.NoError(t, err)
		assertEntriesEqual(t, shorter, got)
	})

	t.Run("keys are isolated", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		require.NoError(t, r.Save(ctx, keyFor("asha@example.com"), entriesFixture()))
		nov := domain.RecordKey{User: "asha@example.com", Month: domain.Month{Year: 2026, Month: time.November}}

		_, err := r.Load(ctx, keyFor("ravi@example.com"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = r.Load(ctx, nov)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
