package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// WriteCSV writes the column headings, one row per entry and a final totals
// row. Numbers are written as exact decimal strings.
func WriteCSV(w io.Writer, r domain.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(domain.Columns); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	for _, e := range r.Entries {
		rec := []string{
			fmt.Sprint(e.Serial), e.DateLabel, e.Details, e.Purpose,
			e.DistanceKM.String(), e.Amount.String(),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export.WriteCSV: %w", err)
		}
	}
	if err := cw.Write([]string{"", "", "", "Total", r.Totals.DistanceKM.String(), r.Totals.Amount.String()}); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	return nil
}
