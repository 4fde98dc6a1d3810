package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

const documentColumns = `id, case_id, file_name, storage_path, document_type, category, status, rejection_reason,
       size_bytes, mime_type, due_date, uploaded_by, uploaded_at, reviewed_by, reviewed_at`

// DocumentRepository persists case documents and their comment threads.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusPending
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents
	(id, case_id, file_name, storage_path, document_type, category, status, rejection_reason,
	 size_bytes, mime_type, due_date, uploaded_by, uploaded_at, reviewed_by, reviewed_at)
	VALUES (:id, :case_id, :file_name, :storage_path, :document_type, :category, :status, :rejection_reason,
	 :size_bytes, :mime_type, :due_date, :uploaded_by, :uploaded_at, :reviewed_by, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID fetches a document by identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Review records the approve/reject decision, guarded on the document still
// being pending. Returns affected rows so a duplicate review is detectable.
func (r *DocumentRepository) Review(ctx context.Context, id string, status models.DocumentStatus, reason *string, reviewerID string, ts time.Time) (int64, error) {
	const query = `UPDATE documents SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = $4
	WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, status, reason, reviewerID, ts, id, models.DocumentStatusPending)
	if err != nil {
		return 0, fmt.Errorf("review document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("review document rows: %w", err)
	}
	return affected, nil
}

// List returns documents matching the filter, newest upload first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + documentColumns + ` FROM documents`)

	conditions := make([]string, 0, 3)
	if filter.CaseID != "" {
		args = append(args, filter.CaseID)
		conditions = append(conditions, fmt.Sprintf("case_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY uploaded_at DESC")

	limit := filter.PageSize
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, (page-1)*limit))

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// CountPending returns the number of documents awaiting review.
func (r *DocumentRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM documents WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.DocumentStatusPending); err != nil {
		return 0, fmt.Errorf("count pending documents: %w", err)
	}
	return count, nil
}

// PendingDueOn returns pending documents whose due date falls on the given
// calendar day (UTC). Used by the reminder matcher.
func (r *DocumentRepository) PendingDueOn(ctx context.Context, day time.Time, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 500
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	query := `SELECT ` + documentColumns + ` FROM documents
	WHERE status = $1 AND due_date >= $2 AND due_date < $3
	ORDER BY due_date ASC LIMIT $4`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, models.DocumentStatusPending, start, end, limit); err != nil {
		return nil, fmt.Errorf("pending documents due: %w", err)
	}
	return docs, nil
}

// AddComment appends to a document's comment thread.
func (r *DocumentRepository) AddComment(ctx context.Context, comment *models.DocumentComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_comments (id, document_id, author_id, content, created_at)
	VALUES (:id, :document_id, :author_id, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("add document comment: %w", err)
	}
	return nil
}

// ListComments returns the ordered comment thread for a document.
func (r *DocumentRepository) ListComments(ctx context.Context, documentID string) ([]models.DocumentComment, error) {
	const query = `SELECT id, document_id, author_id, content, created_at
	FROM document_comments WHERE document_id = $1 ORDER BY created_at ASC`
	var comments []models.DocumentComment
	if err := r.db.SelectContext(ctx, &comments, query, documentID); err != nil {
		return nil, fmt.Errorf("list document comments: %w", err)
	}
	return comments, nil
}
