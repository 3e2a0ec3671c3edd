package domain

import (
	"fmt"
	"time"
)

// Month is a calendar month, the second half of a RecordKey.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses the "2006-01" form produced by Month.String.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month must look like 2006-01", ErrValidation)
	}
	return MonthOf(t), nil
}

// String returns the month as "2006-01".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label returns the short month name, e.g. "Oct".
func (m Month) Label() string {
	return m.first().Format("Jan")
}

// Title returns the month with its year, e.g. "Oct 2026".
func (m Month) Title() string {
	return m.first().Format("Jan 2006")
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}
