// Package export renders a domain.Report as a styled spreadsheet, a
// printable PDF, or plain CSV. Every renderer is a pure function of the
// Report and writes to the supplied io.Writer.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// SheetName is the single worksheet in a spreadsheet export.
const SheetName = "Petrol Expense"

// Row positions in the spreadsheet layout.
const (
	headerRow    = 4
	firstDataRow = 5
)

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// WriteSpreadsheet writes the xlsx summary: title, employee/date block,
// rate line, bordered table and a totals row.
func WriteSpreadsheet(w io.Writer, r domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export.WriteSpreadsheet: %w", err)
	}
	sw := &sheetWriter{f: f}

	title := sw.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	bold := sw.style(&excelize.Style{Font: &excelize.Font{Bold: true}})
	right := sw.style(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}})
	head := sw.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorder(),
	})
	cell := sw.style(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
		Border:    thinBorder(),
	})
	total := sw.style(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorder(),
	})

	sw.merge("B1", "F1")
	sw.set("B1", fmt.Sprintf("Petrol Expense Summary - %s-%d", r.Month.Label(), r.Month.Year), title)
	sw.merge("B2", "E2")
	sw.set("B2", "Employee Name: "+r.EmployeeName, bold)
	sw.set("F2", "Date: "+r.GeneratedAt.Format("02.01.06"), right)
	sw.merge("B3", "F3")
	sw.set("B3", fmt.Sprintf("Petrol Conveyance: %s INR / Kms for 2-Wheeler", r.RatePerKM), 0)

	for i, name := range domain.Columns {
		sw.set(sw.name(i+1, headerRow), name, head)
	}

	for i, e := range r.Entries {
		row := firstDataRow + i
		values := []any{e.Serial, e.DateLabel, e.Details, e.Purpose, e.DistanceKM.InexactFloat64(), e.Amount.InexactFloat64()}
		for col, v := range values {
			sw.set(sw.name(col+1, row), v, cell)
		}
	}

	totalRow := firstDataRow + len(r.Entries)
	sw.merge(sw.name(1, totalRow), sw.name(4, totalRow))
	sw.set(sw.name(1, totalRow), "Total", total)
	sw.set(sw.name(5, totalRow), r.Totals.DistanceKM.InexactFloat64(), total)
	sw.set(sw.name(6, totalRow), r.Totals.Amount.InexactFloat64(), total)
	for col := 2; col <= 4; col++ {
		sw.styleOnly(sw.name(col, totalRow), total)
	}

	if sw.err == nil {
		sw.err = f.SetColWidth(SheetName, "A", "F", 20)
	}
	if sw.err != nil {
		return fmt.Errorf("export.WriteSpreadsheet: %w", sw.err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export.WriteSpreadsheet: write: %w", err)
	}
	return nil
}

// sheetWriter keeps the first excelize error so the layout code above can
// read as a straight sequence of cell writes.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (s *sheetWriter) style(st *excelize.Style) int {
	if s.err != nil {
		return 0
	}
	id, err := s.f.NewStyle(st)
	s.err = err
	return id
}

func (s *sheetWriter) name(col, row int) string {
	if s.err != nil {
		return ""
	}
	n, err := excelize.CoordinatesToCellName(col, row)
	s.err = err
	return n
}

func (s *sheetWriter) merge(from, to string) {
	if s.err != nil {
		return
	}
	s.err = s.f.MergeCell(SheetName, from, to)
}

func (s *sheetWriter) set(cell string, v any, style int) {
	if s.err != nil {
		return
	}
	if s.err = s.f.SetCellValue(SheetName, cell, v); s.err != nil {
		return
	}
	if style != 0 {
		s.styleOnly(cell, style)
	}
}

func (s *sheetWriter) styleOnly(cell string, style int) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(SheetName, cell, cell, style)
}
