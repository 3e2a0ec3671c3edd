package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/service"
)

func seededExport(t *testing.T) *service.ExportService {
	t.Helper()
	records := newRecords(memRepo())
	ctx := context.Background()
	_, err := records.Create(ctx, testKey(), input("Office to site", 20, 8))
	require.NoError(t, err)
	_, err = records.Create(ctx, testKey(), input("Site to vendor", 18, 8))
	require.NoError(t, err)
	return service.NewExportService(records, service.WithClock(fixedClock()))
}

func TestExportService_CSV(t *testing.T) {
	svc := seededExport(t)

	doc, err := svc.Export(context.Background(), asha(), testKey().Month, domain.FormatCSV)

	require.NoError(t, err)
	assert.Equal(t, "PE-Oct-asha@example.com.csv", doc.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(doc.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"", "", "", "Total", "22", "88"}, rows[3])
}

func TestExportService_AllFormats(t *testing.T) {
	svc := seededExport(t)

	for _, f := range []domain.ExportFormat{domain.FormatXLSX, domain.FormatPDF, domain.FormatCSV} {
		t.Run(string(f), func(t *testing.T) {
			doc, err := svc.Export(context.Background(), asha(), testKey().Month, f)
			require.NoError(t, err)
			assert.NotEmpty(t, doc.Body)
			assert.NotEmpty(t, doc.ContentType)
			assert.Equal(t, "PE-Oct-asha@example.com."+string(f), doc.Filename)
		})
	}
}

func TestExportService_EmptyMonth(t *testing.T) {
	svc := service.NewExportService(newRecords(memRepo()), service.WithClock(fixedClock()))

	doc, err := svc.Export(context.Background(), asha(), testKey().Month, domain.FormatCSV)

	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(doc.Body)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportService_UnsupportedFormat(t *testing.T) {
	svc := seededExport(t)

	_, err := svc.Export(context.Background(), asha(), testKey().Month, domain.ExportFormat("docx"))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExportFileName_SanitizesUser(t *testing.T) {
	key := domain.RecordKey{User: "a b/c@example.com", Month: testKey().Month}

	assert.Equal(t, "PE-Oct-a_b_c@example.com.pdf", service.ExportFileName(key, domain.FormatPDF))
}
