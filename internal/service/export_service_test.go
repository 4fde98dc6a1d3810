package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/export"
)

type mockExportCases struct {
	cases      []models.Case
	lastFilter models.CaseFilter
}

func (m *mockExportCases) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error) {
	m.lastFilter = filter
	return m.cases, nil
}

type mockExportStorage struct {
	saved   map[string][]byte
	cleaned bool
}

func (m *mockExportStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockExportStorage) Open(filename string) (*os.File, error) {
	if _, ok := m.saved[filename]; !ok {
		return nil, os.ErrNotExist
	}
	return os.Open(os.DevNull)
}

func (m *mockExportStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	m.cleaned = true
	return nil, nil
}

func exportFixtureCases() []models.Case {
	return []models.Case{
		{
			CaseNumber:  "IMM-2026-00001",
			ClientName:  "Maria Santos",
			ServiceType: models.ServiceVisaApplication,
			Status:      models.CaseStatusInProgress,
			Priority:    models.PriorityHigh,
			CreatedAt:   time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		},
		{
			CaseNumber:  "IMM-2026-00002",
			ClientName:  "Amir Khan",
			ServiceType: models.ServiceAsylum,
			Status:      models.CaseStatusUnderReview,
			Priority:    models.PriorityUrgent,
			CreatedAt:   time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		},
	}
}

func newExportService(cases *mockExportCases, storage *mockExportStorage) *ExportService {
	return NewExportService(cases, storage, &mockURLSigner{}, ExportConfig{}, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
}

func TestExportGenerateCasesCSV(t *testing.T) {
	cases := &mockExportCases{cases: exportFixtureCases()}
	storage := &mockExportStorage{}
	svc := newExportService(cases, storage)

	download, err := svc.GenerateCases(context.Background(), models.CaseFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(download.FileName, ".csv"))
	assert.True(t, strings.HasPrefix(download.URL, "/api/v1/exports/download/"))
	assert.Equal(t, 200, cases.lastFilter.PageSize)

	payload := string(storage.saved[download.FileName])
	assert.Contains(t, payload, "Case Number,Client,Service,Status,Priority,Opened")
	assert.Contains(t, payload, "IMM-2026-00001,Maria Santos,VISA_APPLICATION,IN_PROGRESS,HIGH,2026-03-14")
	assert.Contains(t, payload, "IMM-2026-00002")
}

func TestExportGenerateCasesPDF(t *testing.T) {
	cases := &mockExportCases{cases: exportFixtureCases()}
	storage := &mockExportStorage{}
	svc := newExportService(cases, storage)

	download, err := svc.GenerateCases(context.Background(), models.CaseFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(download.FileName, ".pdf"))
	payload := storage.saved[download.FileName]
	require.NotEmpty(t, payload)
	assert.True(t, strings.HasPrefix(string(payload[:5]), "%PDF-"))
}

func TestExportGenerateCasesUnknownFormat(t *testing.T) {
	svc := newExportService(&mockExportCases{}, &mockExportStorage{})

	_, err := svc.GenerateCases(context.Background(), models.CaseFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportOpenSigned(t *testing.T) {
	cases := &mockExportCases{cases: exportFixtureCases()}
	storage := &mockExportStorage{}
	svc := newExportService(cases, storage)

	download, err := svc.GenerateCases(context.Background(), models.CaseFilter{}, ExportFormatCSV)
	require.NoError(t, err)

	token := strings.TrimPrefix(download.URL, "/api/v1/exports/download/")
	file, relPath, err := svc.OpenSigned(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, download.FileName, relPath)
}

func TestExportOpenSignedBadToken(t *testing.T) {
	svc := newExportService(&mockExportCases{}, &mockExportStorage{})

	_, _, err := svc.OpenSigned("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestExportCleanup(t *testing.T) {
	storage := &mockExportStorage{}
	svc := newExportService(&mockExportCases{}, storage)

	svc.Cleanup(context.Background())
	assert.True(t, storage.cleaned)
}
