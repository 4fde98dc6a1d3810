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

const caseColumns = `id, case_number, client_name, client_email, client_phone, passport_number, passport_expiry,
       service_type, tier, priority, status, assigned_to, lead_id, sms_enabled, created_at, updated_at`

// CaseRepository persists case records.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs the repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a new case row.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	const query = `INSERT INTO cases
	(id, case_number, client_name, client_email, client_phone, passport_number, passport_expiry,
	 service_type, tier, priority, status, assigned_to, lead_id, sms_enabled, created_at, updated_at)
	VALUES (:id, :case_number, :client_name, :client_email, :client_phone, :passport_number, :passport_expiry,
	 :service_type, :tier, :priority, :status, :assigned_to, :lead_id, :sms_enabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

// GetByID fetches a case by identifier.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByNumber fetches a case by its immutable case number.
func (r *CaseRepository) GetByNumber(ctx context.Context, caseNumber string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE case_number = $1`
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, caseNumber); err != nil {
		return nil, err
	}
	return &c, nil
}

// ExistsByNumber reports whether a case number is already assigned.
func (r *CaseRepository) ExistsByNumber(ctx context.Context, caseNumber string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM cases WHERE case_number = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, caseNumber); err != nil {
		return false, fmt.Errorf("check case number: %w", err)
	}
	return exists, nil
}

// UpdateStatus moves a case to the target status guarded by the expected
// current status. Returns the number of affected rows so callers can detect
// a concurrent transition racing ahead of this one.
func (r *CaseRepository) UpdateStatus(ctx context.Context, id string, expected, target models.CaseStatus, ts time.Time) (int64, error) {
	const query = `UPDATE cases SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, target, ts, id, expected)
	if err != nil {
		return 0, fmt.Errorf("update case status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update case status rows: %w", err)
	}
	return affected, nil
}

// UpdateFields applies a partial update of mutable case columns.
func (r *CaseRepository) UpdateFields(ctx context.Context, c *models.Case) error {
	c.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cases SET
	client_email = :client_email, client_phone = :client_phone,
	passport_number = :passport_number, passport_expiry = :passport_expiry,
	tier = :tier, priority = :priority, assigned_to = :assigned_to,
	sms_enabled = :sms_enabled, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	return nil
}

// List returns cases matching the filter, newest first.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + caseColumns + ` FROM cases`)

	conditions := make([]string, 0, 5)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ServiceType != "" {
		args = append(args, filter.ServiceType)
		conditions = append(conditions, fmt.Sprintf("service_type = $%d", len(args)))
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
		conditions = append(conditions, fmt.Sprintf("(LOWER(client_name) LIKE $%d OR LOWER(case_number) LIKE $%d)", len(args), len(args)))
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

	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// CountByStatus groups open and closed cases for the dashboard.
func (r *CaseRepository) CountByStatus(ctx context.Context) (map[models.CaseStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM cases GROUP BY status`
	rows := []struct {
		Status models.CaseStatus `db:"status"`
		Count  int               `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count cases by status: %w", err)
	}
	counts := make(map[models.CaseStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// WithPassportExpiringOn returns non-terminal cases whose passport expires on
// the given calendar day (UTC). Used by the reminder matcher.
func (r *CaseRepository) WithPassportExpiringOn(ctx context.Context, day time.Time, limit int) ([]models.Case, error) {
	if limit <= 0 {
		limit = 500
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	query := `SELECT ` + caseColumns + ` FROM cases
	WHERE passport_expiry >= $1 AND passport_expiry < $2
	  AND status NOT IN ($3, $4)
	ORDER BY passport_expiry ASC LIMIT $5`
	var cases []models.Case
	err := r.db.SelectContext(ctx, &cases, query, start, end, models.CaseStatusRejected, models.CaseStatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("cases with expiring passports: %w", err)
	}
	return cases, nil
}
