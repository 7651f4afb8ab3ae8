package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
	"github.com/noah-isme/gov-portal-api/pkg/export"
)

type fakeAppealLister struct {
	appeals []models.Appeal
	err     error
}

func (f *fakeAppealLister) List(_ context.Context, spec models.AppealFilterSpec) (*dto.AppealListResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	return &dto.AppealListResponse{Appeals: FilterAppeals(f.appeals, spec, now), Stats: ComputeStats(f.appeals), Filter: spec}, nil
}

type failingPDF struct{}

func (failingPDF) Render(export.Dataset, string) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestExportServiceCSVRendersFilteredRows(t *testing.T) {
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	svc := NewExportService(&fakeAppealLister{appeals: sampleAppeals(now)}, nil, nil, nil)
	svc.now = func() time.Time { return now }

	spec := allSpec()
	spec.Status = string(models.AppealStatusCompleted)
	result, err := svc.Appeals(context.Background(), spec, ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "appeals_completed_20240515_140000.csv", result.Filename)
	assert.Equal(t, 1, result.Rows)

	records, err := csv.NewReader(bytes.NewReader(result.Payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, appealExportHeaders, records[0])
	assert.Equal(t, "a-3", records[1][0])
	assert.Equal(t, "Please add more benches", records[1][8])
}

func TestExportServicePDF(t *testing.T) {
	now := time.Now()
	svc := NewExportService(&fakeAppealLister{appeals: sampleAppeals(now)}, nil, nil, nil)

	result, err := svc.Appeals(context.Background(), allSpec(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
	assert.Equal(t, 4, result.Rows)
}

type recordingPDF struct {
	dataset export.Dataset
}

func (r *recordingPDF) Render(data export.Dataset, _ string) ([]byte, error) {
	r.dataset = data
	return []byte("%PDF-1.3"), nil
}

func TestExportServicePDFUsesCompactTimestamps(t *testing.T) {
	created := time.Date(2024, 5, 15, 9, 30, 45, 0, time.UTC)
	pdf := &recordingPDF{}
	svc := NewExportService(&fakeAppealLister{}, nil, nil, pdf)

	_, err := svc.Render([]models.Appeal{{ID: "a-1", Title: "Pothole", CreatedAt: created, UpdatedAt: created.Add(90 * time.Minute)}}, allSpec(), ExportFormatPDF)
	require.NoError(t, err)

	require.Len(t, pdf.dataset.Rows, 1)
	assert.Equal(t, "2024-05-15 09:30", pdf.dataset.Rows[0]["Created At"])
	assert.Equal(t, "2024-05-15 11:00", pdf.dataset.Rows[0]["Updated At"])
	assert.Greater(t, pdf.dataset.Weights["Created At"], pdf.dataset.Weights["Priority"])
}

func TestExportServiceCSVNeutralizesResidentFormulas(t *testing.T) {
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	body := `=HYPERLINK("http://evil","click")`
	appeal := models.Appeal{ID: "a1", Title: "=1+1", Content: &body, CreatedAt: now}
	svc := NewExportService(&fakeAppealLister{}, nil, export.NewCSVExporter(export.WithBOM()), nil)

	result, err := svc.Render([]models.Appeal{appeal}, allSpec(), ExportFormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(result.Payload, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "'=1+1", records[1][1])
	assert.Equal(t, "'"+body, records[1][8])
	assert.Equal(t, "2024-05-15T14:00:00Z", records[1][6])
}

func TestExportServiceRenderFailure(t *testing.T) {
	svc := NewExportService(&fakeAppealLister{}, nil, nil, failingPDF{})

	_, err := svc.Render(nil, allSpec(), ExportFormatPDF)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestExportServicePropagatesStoreFailure(t *testing.T) {
	storeErr := appErrors.Persistence(errors.New("timeout"), "failed to load appeals")
	svc := NewExportService(&fakeAppealLister{err: storeErr}, nil, nil, nil)

	_, err := svc.Appeals(context.Background(), allSpec(), ExportFormatCSV)
	assert.True(t, appErrors.IsPersistence(err))
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("xlsx")
	assert.True(t, appErrors.IsValidation(err))
}
