package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExportFormat names a supported export document type.
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
	FormatCSV  ExportFormat = "csv"
)

// Valid reports whether f is one of the supported formats.
func (f ExportFormat) Valid() bool {
	switch f {
	case FormatXLSX, FormatPDF, FormatCSV:
		return true
	}
	return false
}

// Report is everything an export renderer needs. Renderers are pure
// functions of a Report; GeneratedAt supplies the printed date.
type Report struct {
	EmployeeName string
	Month        Month
	GeneratedAt  time.Time
	RatePerKM    decimal.Decimal
	Entries      []Entry
	Totals       Totals
}

// Columns are the table headings shared by the record file and every export.
var Columns = []string{"Sr", "Date", "Particulars - Travelling Details", "Purpose", "KMS", "Total INR"}
