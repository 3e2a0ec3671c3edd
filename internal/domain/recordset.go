package domain

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// RecordKey identifies one RecordSet: a user's entries for a calendar month.
type RecordKey struct {
	User  string
	Month Month
}

func (k RecordKey) String() string {
	return k.User + "/" + k.Month.String()
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._@-]+`)

// SafeUser returns the user identity with characters outside
// [A-Za-z0-9._@-] replaced, for use in file names.
func (k RecordKey) SafeUser() string {
	return unsafeFileChars.ReplaceAllString(k.User, "_")
}

// RecordSet is the ordered collection of entries for one RecordKey.
// All mutators leave Serial values equal to 1..len(Entries).
type RecordSet struct {
	Key     RecordKey
	Entries []Entry
}

// NewRecordSet wraps loaded entries, ordering them by ascending serial.
// Stored field values are kept as-is.
func NewRecordSet(key RecordKey, entries []Entry) RecordSet {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return RecordSet{Key: key, Entries: out}
}

// Len returns the number of entries.
func (rs *RecordSet) Len() int { return len(rs.Entries) }

// Find returns the entry with the given serial.
func (rs *RecordSet) Find(serial int) (Entry, bool) {
	i := rs.index(serial)
	if i < 0 {
		return Entry{}, false
	}
	return rs.Entries[i], true
}

// Append adds e at the end with serial count+1 and returns the stored entry.
func (rs *RecordSet) Append(e Entry) Entry {
	e.Serial = len(rs.Entries) + 1
	rs.Entries = append(rs.Entries, e)
	rs.Renumber()
	return rs.Entries[len(rs.Entries)-1]
}

// Replace overwrites the entry with the given serial, keeping its position.
func (rs *RecordSet) Replace(serial int, e Entry) (Entry, error) {
	i := rs.index(serial)
	if i < 0 {
		return Entry{}, fmt.Errorf("serial %d: %w", serial, ErrNotFound)
	}
	e.Serial = serial
	rs.Entries[i] = e
	return e, nil
}

// Remove deletes the entry with the given serial and renumbers the rest.
func (rs *RecordSet) Remove(serial int) (Entry, error) {
	i := rs.index(serial)
	if i < 0 {
		return Entry{}, fmt.Errorf("serial %d: %w", serial, ErrNotFound)
	}
	removed := rs.Entries[i]
	rs.Entries = append(rs.Entries[:i], rs.Entries[i+1:]...)
	rs.Renumber()
	return removed, nil
}

// Renumber reassigns serials to 1..len in current order.
func (rs *RecordSet) Renumber() {
	for i := range rs.Entries {
		rs.Entries[i].Serial = i + 1
	}
}

// Aggregate sums distance and amount over all entries. It is never cached.
func (rs *RecordSet) Aggregate() Totals {
	t := Totals{DistanceKM: decimal.Zero, Amount: decimal.Zero}
	for _, e := range rs.Entries {
		t.DistanceKM = t.DistanceKM.Add(e.DistanceKM)
		t.Amount = t.Amount.Add(e.Amount)
	}
	return t
}

func (rs *RecordSet) index(serial int) int {
	for i, e := range rs.Entries {
		if e.Serial == serial {
			return i
		}
	}
	return -1
}
