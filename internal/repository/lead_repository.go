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

const leadColumns = `id, first_name, last_name, email, phone, alternate_phone, source, status, priority,
       assigned_to, converted_case_id, converted_at, created_at, updated_at`

// LeadRepository persists lead records and their notes.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository constructs the repository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a new lead row.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.Priority == "" {
		lead.Priority = models.PriorityMedium
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	const query = `INSERT INTO leads
	(id, first_name, last_name, email, phone, alternate_phone, source, status, priority,
	 assigned_to, converted_case_id, converted_at, created_at, updated_at)
	VALUES (:id, :first_name, :last_name, :email, :phone, :alternate_phone, :source, :status, :priority,
	 :assigned_to, :converted_case_id, :converted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// GetByID fetches a lead by identifier.
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	var lead models.Lead
	if err := r.db.GetContext(ctx, &lead, query, id); err != nil {
		return nil, err
	}
	return &lead, nil
}

// Update persists mutable lead fields.
func (r *LeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	lead.UpdatedAt = time.Now().UTC()
	const query = `UPDATE leads SET
	first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
	alternate_phone = :alternate_phone, status = :status, priority = :priority,
	assigned_to = :assigned_to, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return nil
}

// MarkConverted links the lead to its case and flips the status, guarded on
// the lead not already being converted. Returns affected rows so a racing
// second conversion can be detected.
func (r *LeadRepository) MarkConverted(ctx context.Context, leadID, caseID string, ts time.Time) (int64, error) {
	const query = `UPDATE leads SET status = $1, converted_case_id = $2, converted_at = $3, updated_at = $3
	WHERE id = $4 AND status <> $1 AND converted_case_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, models.LeadStatusConverted, caseID, ts, leadID)
	if err != nil {
		return 0, fmt.Errorf("mark lead converted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark lead converted rows: %w", err)
	}
	return affected, nil
}

// List returns leads matching the filter, newest first.
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + leadColumns + ` FROM leads`)

	conditions := make([]string, 0, 5)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(email) LIKE $%d)", n, n, n))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.PageSize
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, (page-1)*limit))

	var leads []models.Lead
	if err := r.db.SelectContext(ctx, &leads, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

// CountByStatus groups leads per pipeline stage for the dashboard funnel.
func (r *LeadRepository) CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM leads GROUP BY status`
	rows := []struct {
		Status models.LeadStatus `db:"status"`
		Count  int               `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	counts := make(map[models.LeadStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// AddNote appends a note to a lead.
func (r *LeadRepository) AddNote(ctx context.Context, note *models.LeadNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lead_notes (id, lead_id, author_id, content, pinned, internal, created_at)
	VALUES (:id, :lead_id, :author_id, :content, :pinned, :internal, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("add lead note: %w", err)
	}
	return nil
}

// ListNotes returns a lead's notes, pinned first, then newest first.
func (r *LeadRepository) ListNotes(ctx context.Context, leadID string) ([]models.LeadNote, error) {
	const query = `SELECT id, lead_id, author_id, content, pinned, internal, created_at
	FROM lead_notes WHERE lead_id = $1 ORDER BY pinned DESC, created_at DESC`
	var notes []models.LeadNote
	if err := r.db.SelectContext(ctx, &notes, query, leadID); err != nil {
		return nil, fmt.Errorf("list lead notes: %w", err)
	}
	return notes, nil
}
