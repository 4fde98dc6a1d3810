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

const appointmentColumns = `id, case_id, lead_id, client_name, client_email, client_phone, title, type, status,
       scheduled_at, duration_minutes, location, meeting_link, notes, created_at, updated_at`

// AppointmentRepository persists scheduled meetings.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment row.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = models.AppointmentStatusScheduled
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	const query = `INSERT INTO appointments
	(id, case_id, lead_id, client_name, client_email, client_phone, title, type, status,
	 scheduled_at, duration_minutes, location, meeting_link, notes, created_at, updated_at)
	VALUES (:id, :case_id, :lead_id, :client_name, :client_email, :client_phone, :title, :type, :status,
	 :scheduled_at, :duration_minutes, :location, :meeting_link, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// GetByID fetches an appointment by identifier.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// Decide closes out an appointment, guarded on it still being scheduled.
func (r *AppointmentRepository) Decide(ctx context.Context, id string, status models.AppointmentStatus, notes string, ts time.Time) (int64, error) {
	const query = `UPDATE appointments SET status = $1, notes = $2, updated_at = $3
	WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, status, notes, ts, id, models.AppointmentStatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("decide appointment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decide appointment rows: %w", err)
	}
	return affected, nil
}

// List returns appointments matching the filter, soonest first.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(`SELECT ` + appointmentColumns + ` FROM appointments`)

	conditions := make([]string, 0, 4)
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
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY scheduled_at ASC")

	limit := filter.PageSize
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, (page-1)*limit))

	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ScheduledOn returns scheduled appointments taking place on the given
// calendar day (UTC). Used by the reminder matcher.
func (r *AppointmentRepository) ScheduledOn(ctx context.Context, day time.Time, limit int) ([]models.Appointment, error) {
	if limit <= 0 {
		limit = 500
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	query := `SELECT ` + appointmentColumns + ` FROM appointments
	WHERE status = $1 AND scheduled_at >= $2 AND scheduled_at < $3
	ORDER BY scheduled_at ASC LIMIT $4`
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, models.AppointmentStatusScheduled, start, end, limit); err != nil {
		return nil, fmt.Errorf("appointments scheduled on day: %w", err)
	}
	return appts, nil
}

// CountUpcoming returns the number of scheduled appointments from now on.
func (r *AppointmentRepository) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM appointments WHERE status = $1 AND scheduled_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.AppointmentStatusScheduled, now); err != nil {
		return 0, fmt.Errorf("count upcoming appointments: %w", err)
	}
	return count, nil
}
