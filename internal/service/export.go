package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/export"
	"github.com/pkordes/petrol-logbook/internal/metrics"
)

// Document is a rendered export ready to be sent as a download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var contentTypes = map[domain.ExportFormat]string{
	domain.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	domain.FormatPDF:  "application/pdf",
	domain.FormatCSV:  "text/csv; charset=utf-8",
}

var renderers = map[domain.ExportFormat]func(io.Writer, domain.Report) error{
	domain.FormatXLSX: export.WriteSpreadsheet,
	domain.FormatPDF:  export.WritePDF,
	domain.FormatCSV:  export.WriteCSV,
}

// ExportService turns a user's month of entries into a downloadable document.
type ExportService struct {
	records *RecordService
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewExportService constructs an ExportService reading through records.
func NewExportService(records *RecordService, opts ...Option) *ExportService {
	o := buildOptions(opts)
	return &ExportService{
		records: records,
		now:     o.now,
		log:     o.log.With("component", "export"),
		metrics: o.metrics,
	}
}

// Export renders the RecordSet for (user, month) in the requested format.
// The document is rendered fully in memory so a rendering failure never
// produces a partial download.
// Returns domain.ErrValidation for an unsupported format.
func (s *ExportService) Export(ctx context.Context, user domain.UserProfile, month domain.Month, format domain.ExportFormat) (Document, error) {
	render, ok := renderers[format]
	if !ok {
		return Document{}, fmt.Errorf("service.ExportService.Export: %w: unsupported format %q", domain.ErrValidation, format)
	}

	key := domain.RecordKey{User: user.Email, Month: month}
	rs, err := s.records.Load(ctx, key)
	if err != nil {
		return Document{}, err
	}

	report := domain.Report{
		EmployeeName: user.Name,
		Month:        month,
		GeneratedAt:  s.now(),
		RatePerKM:    s.records.Rate(),
		Entries:      rs.Entries,
		Totals:       rs.Aggregate(),
	}

	var buf bytes.Buffer
	if err := render(&buf, report); err != nil {
		s.log.ErrorContext(ctx, "export render failed", "format", string(format), "user", user.Email, "error", err)
		return Document{}, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	s.metrics.Export(string(format))

	return Document{
		Filename:    ExportFileName(key, format),
		ContentType: contentTypes[format],
		Body:        buf.Bytes(),
	}, nil
}

// ExportFileName returns the download name, e.g. "PE-Oct-asha@example.com.pdf".
func ExportFileName(key domain.RecordKey, format domain.ExportFormat) string {
	return fmt.Sprintf("PE-%s-%s.%s", key.Month.Label(), key.SafeUser(), format)
}
