package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// recordSheet is the sheet name written to every record workbook.
const recordSheet = "Sheet1"

// xlsxRecordRepo stores each RecordSet as its own workbook under dir.
type xlsxRecordRepo struct {
	dir string
}

// NewXLSXRecordRepo constructs a RecordRepo that keeps one workbook per
// (user, month) in dir. The directory is created if it does not exist.
func NewXLSXRecordRepo(dir string) (RecordRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("repo.NewXLSXRecordRepo: create dir: %w", err)
	}
	return &xlsxRecordRepo{dir: dir}, nil
}

// RecordFileName returns the workbook name for key, e.g.
// "PE-Oct-2026-asha@example.com.xlsx".
func RecordFileName(key domain.RecordKey) string {
	return fmt.Sprintf("PE-%s-%d-%s.xlsx", key.Month.Label(), key.Month.Year, key.SafeUser())
}

func (r *xlsxRecordRepo) path(key domain.RecordKey) string {
	return filepath.Join(r.dir, RecordFileName(key))
}

// Load reads the workbook for key. The first row must carry the column
// headings; blank rows are skipped.
func (r *xlsxRecordRepo) Load(_ context.Context, key domain.RecordKey) ([]domain.Entry, error) {
	path := r.path(key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("repo.RecordRepo.Load: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("repo.RecordRepo.Load: stat: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Load: %w: %v", domain.ErrCorrupt, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("repo.RecordRepo.Load: %w: workbook has no sheets", domain.ErrCorrupt)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Load: %w: %v", domain.ErrCorrupt, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, fmt.Errorf("repo.RecordRepo.Load: %w", err)
	}

	var entries []domain.Entry
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		e, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("repo.RecordRepo.Load: row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Save writes entries to a temporary workbook beside the target and renames
// it into place, so a crash never leaves a truncated record file.
func (r *xlsxRecordRepo) Save(_ context.Context, key domain.RecordKey, entries []domain.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(domain.Columns))
	for i, c := range domain.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(recordSheet, "A1", &header); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: header: %w", err)
	}
	for i, e := range entries {
		if err := fitsCells(e); err != nil {
			return fmt.Errorf("repo.RecordRepo.Save: %w", err)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("repo.RecordRepo.Save: %w", err)
		}
		row := []any{e.Serial, e.DateLabel, e.Details, e.Purpose, kmCell(e.DistanceKM), kmCell(e.Amount)}
		if err := f.SetSheetRow(recordSheet, cell, &row); err != nil {
			return fmt.Errorf("repo.RecordRepo.Save: row %d: %w", e.Serial, err)
		}
	}

	tmp, err := os.CreateTemp(r.dir, ".pe-*.xlsx.tmp")
	if err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("repo.RecordRepo.Save: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("repo.RecordRepo.Save: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: close: %w", err)
	}
	if err := os.Rename(tmpName, r.path(key)); err != nil {
		return fmt.Errorf("repo.RecordRepo.Save: rename: %w", err)
	}
	return nil
}

// fitsCells rejects text that excelize would otherwise cut at the cell
// limit without complaint.
func fitsCells(e domain.Entry) error {
	for _, f := range []struct{ name, value string }{
		{"date", e.DateLabel}, {"details", e.Details}, {"purpose", e.Purpose},
	} {
		if utf8.RuneCountInString(f.value) > excelize.TotalCellChars {
			return fmt.Errorf("entry %d: %s exceeds %d characters", e.Serial, f.name, excelize.TotalCellChars)
		}
	}
	return nil
}

// kmCell fixes a value at domain.KMScale places before it becomes a float
// cell. Values at that scale and in the validated range format back to the
// same decimal string.
func kmCell(d decimal.Decimal) float64 {
	return d.Round(domain.KMScale).InexactFloat64()
}

func checkHeader(row []string) error {
	if len(row) < len(domain.Columns) {
		return fmt.Errorf("%w: expected %d columns, found %d", domain.ErrCorrupt, len(domain.Columns), len(row))
	}
	for i, want := range domain.Columns {
		if strings.TrimSpace(row[i]) != want {
			return fmt.Errorf("%w: column %d is %q, want %q", domain.ErrCorrupt, i+1, row[i], want)
		}
	}
	return nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseRow maps one data row. GetRows drops trailing empty cells, so the
// row is padded before indexing.
func parseRow(row []string) (domain.Entry, error) {
	for len(row) < len(domain.Columns) {
		row = append(row, "")
	}

	serial, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
	if err != nil || serial < 1 || serial != float64(int(serial)) {
		return domain.Entry{}, fmt.Errorf("%w: serial %q", domain.ErrCorrupt, row[0])
	}
	distance, err := decimal.NewFromString(strings.TrimSpace(row[4]))
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: KMS %q", domain.ErrCorrupt, row[4])
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(row[5]))
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: Total INR %q", domain.ErrCorrupt, row[5])
	}

	return domain.Entry{
		Serial:     int(serial),
		DateLabel:  row[1],
		Details:    row[2],
		Purpose:    row[3],
		DistanceKM: distance,
		Amount:     amount,
	}, nil
}
