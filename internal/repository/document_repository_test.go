package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

func newDocumentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "case_id", "file_name", "storage_path", "document_type", "category",
		"status", "rejection_reason", "size_bytes", "mime_type", "due_date",
		"uploaded_by", "uploaded_at", "reviewed_by", "reviewed_at",
	})
}

func TestDocumentRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{
		CaseID:       "case-1",
		FileName:     "passport-scan.pdf",
		StoragePath:  "cases/case-1/passport-scan.pdf",
		DocumentType: models.DocumentTypePassport,
		SizeBytes:    204800,
		MIMEType:     "application/pdf",
		UploadedBy:   "user-1",
	}
	err := repo.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryReviewGuarded(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	ts := time.Now().UTC()
	reason := "illegible scan"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = $4")).
		WithArgs(models.DocumentStatusRejected, &reason, "user-2", ts, "doc-1", models.DocumentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Review(context.Background(), "doc-1", models.DocumentStatusRejected, &reason, "user-2", ts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryReviewAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec("UPDATE documents SET status").
		WithArgs(models.DocumentStatusApproved, nil, "user-2", ts, "doc-1", models.DocumentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Review(context.Background(), "doc-1", models.DocumentStatusApproved, nil, "user-2", ts)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryPendingDueOn(t *testing.T) {
	db, mock, cleanup := newDocumentMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	day := time.Date(2026, 9, 20, 15, 30, 0, 0, time.UTC)
	start := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	due := start.Add(9 * time.Hour)
	mock.ExpectQuery("SELECT (.+) FROM documents\\s+WHERE status = ").
		WithArgs(models.DocumentStatusPending, start, start.Add(24*time.Hour), 200).
		WillReturnRows(documentRows().AddRow(
			"doc-2", "case-1", "i-765.pdf", "cases/case-1/i-765.pdf", "OTHER", "forms",
			"PENDING", nil, 102400, "application/pdf", due,
			"user-1", day, nil, nil,
		))

	docs, err := repo.PendingDueOn(context.Background(), day, 200)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
