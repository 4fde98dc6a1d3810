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

const communicationColumns = `id, channel, direction, subject, content, status, recipient_name, recipient_address,
       case_number, created_at`

// CommunicationRepository persists the message log.
type CommunicationRepository struct {
	db *sqlx.DB
}

// NewCommunicationRepository constructs the repository.
func NewCommunicationRepository(db *sqlx.DB) *CommunicationRepository {
	return &CommunicationRepository{db: db}
}

// Create inserts a new communication entry.
func (r *CommunicationRepository) Create(ctx context.Context, comm *models.Communication) error {
	if comm.ID == "" {
		comm.ID = uuid.NewString()
	}
	if comm.CreatedAt.IsZero() {
		comm.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO communications
	(id, channel, direction, subject, content, status, recipient_name, recipient_address, case_number, created_at)
	VALUES (:id, :channel, :direction, :subject, :content, :status, :recipient_name, :recipient_address, :case_number, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comm); err != nil {
		return fmt.Errorf("create communication: %w", err)
	}
	return nil
}

// UpdateStatus records a delivery outcome change for an existing entry.
func (r *CommunicationRepository) UpdateStatus(ctx context.Context, id string, status models.CommunicationStatus) error {
	const query = `UPDATE communications SET status = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("update communication status: %w", err)
	}
	return nil
}

// List returns communications matching the filter, newest first.
func (r *CommunicationRepository) List(ctx context.Context, filter models.CommunicationFilter) ([]models.Communication, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + communicationColumns + ` FROM communications`)

	conditions := make([]string, 0, 4)
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		conditions = append(conditions, fmt.Sprintf("channel = $%d", len(args)))
	}
	if filter.Direction != "" {
		args = append(args, filter.Direction)
		conditions = append(conditions, fmt.Sprintf("direction = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CaseNumber != "" {
		args = append(args, filter.CaseNumber)
		conditions = append(conditions, fmt.Sprintf("case_number = $%d", len(args)))
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

	var comms []models.Communication
	if err := r.db.SelectContext(ctx, &comms, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	return comms, nil
}
