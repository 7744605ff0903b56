package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cybergutta/akademitrack-agent/internal/repository"
	appErrors "github.com/cybergutta/akademitrack-agent/pkg/errors"
	"github.com/cybergutta/akademitrack-agent/pkg/export"
)

type historyReader interface {
	List() []repository.HistoryEntry
}

// ExportService renders the registration history as downloadable reports.
type ExportService struct {
	history historyReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService builds the export service.
func NewExportService(history historyReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		history: history,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// Render produces the history report in the requested format and returns the
// document bytes, content type and suggested filename.
func (s *ExportService) Render(format string) ([]byte, string, string, error) {
	report := s.buildReport()
	stamp := time.Now().Format("2006-01-02")

	switch format {
	case "csv", "":
		data, err := s.csv.Render(report)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv export")
		}
		return data, "text/csv", fmt.Sprintf("registrations-%s.csv", stamp), nil
	case "pdf":
		data, err := s.pdf.Render(report)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf export")
		}
		return data, "application/pdf", fmt.Sprintf("registrations-%s.pdf", stamp), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ExportService) buildReport() export.Report {
	entries := s.history.List()
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Date,
			entry.Subject,
			entry.Start + "-" + entry.End,
			entry.RegisteredAt.Format(time.RFC3339),
		})
	}
	return export.Report{
		Title:   "Attendance registrations",
		Headers: []string{"Date", "Subject", "Session", "Registered at"},
		Rows:    rows,
	}
}
