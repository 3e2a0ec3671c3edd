// Package domain contains the core data types for the petrol logbook.
// This package depends only on decimal arithmetic and is imported by every
// other internal package (repo, service, handler, export).
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Distance bounds for a single day's total travel, inclusive.
const (
	MinTotalKM = 1
	MaxTotalKM = 999
)

// KMScale is the number of decimal places kept for distances. Every
// storage backend holds a distance, and the amount derived from it at the
// integer rate, exactly at this scale.
const KMScale = 3

// MaxTextLen bounds the free-text fields, in characters. It sits well under
// the 32,767 characters a spreadsheet cell can hold.
const MaxTextLen = 500

// RatePerKM is the fixed conveyance rate paid per reimbursable kilometre
// (INR, two-wheeler).
var RatePerKM = decimal.NewFromInt(4)

// Entry is one reimbursable trip record.
// Serial is positional: it always equals the entry's 1-based index in its
// RecordSet and changes whenever an earlier entry is removed.
type Entry struct {
	Serial     int             `json:"serial"`
	DateLabel  string          `json:"date"`
	Details    string          `json:"details"`
	Purpose    string          `json:"purpose"`
	DistanceKM decimal.Decimal `json:"distance_km"`
	Amount     decimal.Decimal `json:"amount"`
}

// EntryInput carries the user-supplied fields for creating or editing an
// entry. TotalKM is the day's full travel; BaselineKM is the home-to-office
// distance subtracted from it.
type EntryInput struct {
	DateLabel  string
	Details    string
	Purpose    string
	TotalKM    decimal.Decimal
	BaselineKM decimal.Decimal
}

// Validate checks the preconditions shared by create and update.
// The first violated rule is returned; rules are checked in form order.
func (in EntryInput) Validate() error {
	if utf8.RuneCountInString(in.DateLabel) > MaxTextLen {
		return ErrDateTooLong
	}
	if strings.TrimSpace(in.Details) == "" {
		return ErrEmptyDetails
	}
	if utf8.RuneCountInString(in.Details) > MaxTextLen {
		return ErrDetailsTooLong
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return ErrEmptyPurpose
	}
	if utf8.RuneCountInString(in.Purpose) > MaxTextLen {
		return ErrPurposeTooLong
	}
	if in.TotalKM.LessThan(decimal.NewFromInt(MinTotalKM)) || in.TotalKM.GreaterThan(decimal.NewFromInt(MaxTotalKM)) {
		return ErrTotalOutOfRange
	}
	if !fitsScale(in.TotalKM) {
		return ErrKMPrecision
	}
	if in.BaselineKM.IsNegative() {
		return ErrNegativeBaseline
	}
	if !fitsScale(in.BaselineKM) {
		return ErrKMPrecision
	}
	return nil
}

// fitsScale reports whether d has no significant digits past KMScale.
// Trailing zeros ("12.5000") are fine.
func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(KMScale))
}

// Compute returns the reimbursable distance and amount for a day's travel.
// The distance is clamped at zero rather than rejected, and rounded to
// KMScale places before the amount is derived from it.
func Compute(totalKM, baselineKM, rate decimal.Decimal) (distanceKM, amount decimal.Decimal) {
	distanceKM = decimal.Max(totalKM.Sub(baselineKM), decimal.Zero).Round(KMScale)
	return distanceKM, distanceKM.Mul(rate)
}

// Same reports whether e and o hold the same values, comparing numbers by
// value so "12" and "12.000" match.
func (e Entry) Same(o Entry) bool {
	return e.Serial == o.Serial &&
		e.DateLabel == o.DateLabel &&
		e.Details == o.Details &&
		e.Purpose == o.Purpose &&
		e.DistanceKM.Equal(o.DistanceKM) &&
		e.Amount.Equal(o.Amount)
}

// Totals is the aggregate over a RecordSet.
type Totals struct {
	DistanceKM decimal.Decimal `json:"distance_km"`
	Amount     decimal.Decimal `json:"amount"`
}
