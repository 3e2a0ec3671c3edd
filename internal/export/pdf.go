package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// Table column widths in millimetres; they add up to the A4 text width
// between 15mm margins.
var pdfColumnWidths = []float64{12, 22, 56, 40, 22, 28}

const (
	pdfMargin     = 15.0
	pdfLineHeight = 5.0
	pdfRowPadding = 1.5
)

// WritePDF writes the printable summary: title, employee/date metadata, the
// entry table with its header repeated on every page, a totals row, and an
// approval line.
func WritePDF(w io.Writer, r domain.Report) error {
	pdf := buildPDF(r)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export.WritePDF: %w", err)
	}
	return nil
}

func buildPDF(r domain.Report) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetTitle(fmt.Sprintf("Petrol Expense Summary - %s", r.Month.Title()), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Petrol Expense Summary - %s", r.Month.Title())), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	labelled := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		lw := pdf.GetStringWidth(label) + 1
		pdf.CellFormat(lw, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	labelled("Employee Name:", r.EmployeeName)
	labelled("Date:", r.GeneratedAt.Format("02-01-2006"))
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Petrol Conveyance: INR %s / KM (2-Wheeler)", r.RatePerKM), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(211, 211, 211)
		for i, name := range domain.Columns {
			pdf.CellFormat(pdfColumnWidths[i], 8, tr(name), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, e := range r.Entries {
		cells := []string{
			fmt.Sprint(e.Serial), e.DateLabel, e.Details, e.Purpose,
			e.DistanceKM.String(), e.Amount.String(),
		}
		lines := make([][]string, len(cells))
		height := 0.0
		for i, c := range cells {
			lines[i] = splitLatin(pdf, tr(c), pdfColumnWidths[i]-2*pdfRowPadding)
			if len(lines[i]) == 0 {
				lines[i] = []string{""}
			}
			if h := float64(len(lines[i]))*pdfLineHeight + 2*pdfRowPadding; h > height {
				height = h
			}
		}
		if pdf.GetY()+height > pageHeight-pdfMargin {
			pdf.AddPage()
			header()
		}
		drawRow(pdf, lines, height)
	}

	if pdf.GetY()+8 > pageHeight-pdfMargin {
		pdf.AddPage()
		header()
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(211, 211, 211)
	totals := []string{"", "", "", "Total", r.Totals.DistanceKM.String(), r.Totals.Amount.String()}
	for i, v := range totals {
		pdf.CellFormat(pdfColumnWidths[i], 8, v, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	if pdf.GetY()+14 > pageHeight-pdfMargin {
		pdf.AddPage()
	}
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Approved by: ____________________", "", 1, "L", false, 0, "")
	return pdf
}

// drawRow draws one bordered table row whose cells may wrap onto several
// lines; every cell gets the full row height.
func drawRow(pdf *fpdf.Fpdf, lines [][]string, height float64) {
	x, y := pdf.GetXY()
	for i, cell := range lines {
		w := pdfColumnWidths[i]
		pdf.Rect(x, y, w, height, "D")
		top := y + (height-float64(len(cell))*pdfLineHeight)/2
		for j, line := range cell {
			pdf.SetXY(x, top+float64(j)*pdfLineHeight)
			pdf.CellFormat(w, pdfLineHeight, line, "", 0, "C", false, 0, "")
		}
		x += w
	}
	pdf.SetXY(pdfMargin, y+height)
}

// splitLatin wraps already-translated cp1252 text to width w. SplitText
// indexes the core font's 256-entry width table by rune, so each byte is
// widened to its own rune for measuring and narrowed back afterwards.
func splitLatin(pdf *fpdf.Fpdf, s string, w float64) []string {
	runes := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		runes[i] = rune(s[i])
	}
	lines := pdf.SplitText(string(runes), w)
	for i, l := range lines {
		b := make([]byte, 0, len(l))
		for _, r := range l {
			b = append(b, byte(r))
		}
		lines[i] = string(b)
	}
	return lines
}
