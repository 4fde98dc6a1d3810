package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

const reminderColumns = `id, name, type, trigger_condition, days_before, message_template, active, created_at, updated_at`

// ReminderRuleRepository persists reminder rule configuration records.
type ReminderRuleRepository struct {
	db *sqlx.DB
}

// NewReminderRuleRepository constructs the repository.
func NewReminderRuleRepository(db *sqlx.DB) *ReminderRuleRepository {
	return &ReminderRuleRepository{db: db}
}

// Create inserts a new rule.
func (r *ReminderRuleRepository) Create(ctx context.Context, rule *models.ReminderRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	const query = `INSERT INTO reminder_rules
	(id, name, type, trigger_condition, days_before, message_template, active, created_at, updated_at)
	VALUES (:id, :name, :type, :trigger_condition, :days_before, :message_template, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create reminder rule: %w", err)
	}
	return nil
}

// GetByID fetches a rule by identifier.
func (r *ReminderRuleRepository) GetByID(ctx context.Context, id string) (*models.ReminderRule, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder_rules WHERE id = $1`
	var rule models.ReminderRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Update persists mutable rule fields.
func (r *ReminderRuleRepository) Update(ctx context.Context, rule *models.ReminderRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reminder_rules SET
	name = :name, days_before = :days_before, message_template = :message_template,
	active = :active, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update reminder rule: %w", err)
	}
	return nil
}

// List returns all rules, newest first.
func (r *ReminderRuleRepository) List(ctx context.Context) ([]models.ReminderRule, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder_rules ORDER BY created_at DESC`
	var rules []models.ReminderRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list reminder rules: %w", err)
	}
	return rules, nil
}

// ListActive returns only rules eligible for evaluation.
func (r *ReminderRuleRepository) ListActive(ctx context.Context) ([]models.ReminderRule, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminder_rules WHERE active = TRUE ORDER BY created_at ASC`
	var rules []models.ReminderRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list active reminder rules: %w", err)
	}
	return rules, nil
}
