package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
	"github.com/noah-isme/gov-portal-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var appealExportHeaders = []string{"ID", "Title", "Category", "Status", "Priority", "Submitted By", "Created At", "Updated At", "Body"}

// appealPDFWeights sizes the landscape register so timestamps and the body get room.
var appealPDFWeights = map[string]float64{
	"ID":           1.8,
	"Title":        2.2,
	"Category":     1.2,
	"Status":       1.2,
	"Priority":     1.0,
	"Submitted By": 1.8,
	"Created At":   1.6,
	"Updated At":   1.6,
	"Body":         3.6,
}

const (
	csvTimeLayout = time.RFC3339
	pdfTimeLayout = "2006-01-02 15:04"
)

type appealLister interface {
	List(ctx context.Context, spec models.AppealFilterSpec) (*dto.AppealListResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService renders the filtered appeal register.
type ExportService struct {
	appeals appealLister
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(appeals appealLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{appeals: appeals, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat accepts csv or pdf, defaulting to csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// Appeals refetches the register, applies spec and renders the visible rows.
func (s *ExportService) Appeals(ctx context.Context, spec models.AppealFilterSpec, format ExportFormat) (*ExportResult, error) {
	list, err := s.appeals.List(ctx, spec)
	if err != nil {
		return nil, err
	}
	return s.Render(list.Appeals, spec, format)
}

// Render turns an already filtered appeal list into a document.
func (s *ExportService) Render(appeals []models.Appeal, spec models.AppealFilterSpec, format ExportFormat) (*ExportResult, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(appealDataset(appeals, csvTimeLayout))
		contentType = "text/csv"
	case ExportFormatPDF:
		dataset := appealDataset(appeals, pdfTimeLayout)
		dataset.Weights = appealPDFWeights
		payload, err = s.pdf.Render(dataset, exportTitle(spec))
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		s.logger.Error("appeal export render failed", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    s.buildFilename(spec, format),
		ContentType: contentType,
		Payload:     payload,
		Rows:        len(appeals),
	}, nil
}

func appealDataset(appeals []models.Appeal, timeLayout string) export.Dataset {
	rows := make([]map[string]string, 0, len(appeals))
	for _, appeal := range appeals {
		body, _ := appeal.Body()
		rows = append(rows, map[string]string{
			"ID":           appeal.ID,
			"Title":        appeal.Title,
			"Category":     string(appeal.Category),
			"Status":       string(appeal.Status),
			"Priority":     string(appeal.Priority),
			"Submitted By": appeal.SubmittedBy,
			"Created At":   formatExportTime(appeal.CreatedAt, timeLayout),
			"Updated At":   formatExportTime(appeal.UpdatedAt, timeLayout),
			"Body":         body,
		})
	}
	return export.Dataset{Headers: appealExportHeaders, Rows: rows}
}

func exportTitle(spec models.AppealFilterSpec) string {
	parts := []string{"Appeal Register"}
	if !dimensionAll(spec.Status) {
		parts = append(parts, spec.Status)
	}
	if !dimensionAll(spec.Category) {
		parts = append(parts, spec.Category)
	}
	if spec.DateBucket != "" && spec.DateBucket != models.AppealDateAll {
		parts = append(parts, string(spec.DateBucket))
	}
	return strings.Join(parts, " - ")
}

func (s *ExportService) buildFilename(spec models.AppealFilterSpec, format ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "all"
	if !dimensionAll(spec.Status) {
		scope = sanitizeFilename(strings.ToLower(spec.Status))
	}
	return fmt.Sprintf("appeals_%s_%s.%s", scope, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatExportTime(ts time.Time, layout string) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(layout)
}
