package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type caseLister interface {
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders case roster exports and hands out signed download
// links for the generated files.
type ExportService struct {
	cases   caseLister
	storage exportStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  urlSigner
	cfg     ExportConfig
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(cases caseLister, storage exportStorage, signer urlSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1/exports/download"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{cases: cases, storage: storage, csv: csv, pdf: pdf, signer: signer, cfg: cfg, logger: logger}
}

var caseExportHeaders = []string{"Case Number", "Client", "Service", "Status", "Priority", "Opened"}

// GenerateCases renders the filtered case roster and stores the file.
func (s *ExportService) GenerateCases(ctx context.Context, filter models.CaseFilter, format ExportFormat) (*dto.ExportDownload, error) {
	filter.PageSize = 200
	if filter.Page < 1 {
		filter.Page = 1
	}
	cases, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cases for export")
	}

	dataset := export.Dataset{Headers: caseExportHeaders}
	for _, c := range cases {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Case Number": c.CaseNumber,
			"Client":      c.ClientName,
			"Service":     string(c.ServiceType),
			"Status":      string(c.Status),
			"Priority":    string(c.Priority),
			"Opened":      c.CreatedAt.Format("2006-01-02"),
		})
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Case Roster")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := fmt.Sprintf("cases-%d", time.Now().UTC().UnixNano())
	fileName := fmt.Sprintf("%s.%s", exportID, format)
	relPath, err := s.storage.Save(fileName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.logger.Info("export generated",
		zap.String("file", fileName),
		zap.Int("rows", len(dataset.Rows)),
		zap.String("format", string(format)))

	return &dto.ExportDownload{
		FileName:  fileName,
		URL:       strings.TrimSuffix(s.cfg.APIPrefix, "/") + "/" + token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// OpenSigned validates an export download token and opens the file.
func (s *ExportService) OpenSigned(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, relPath, nil
}

// Cleanup deletes exports older than the retention TTL.
func (s *ExportService) Cleanup(ctx context.Context) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

// RunCleanup prunes expired exports on the provided interval.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(ctx)
		}
	}
}
