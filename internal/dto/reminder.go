package dto

import (
	"time"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

// CreateReminderRuleRequest registers a declarative trigger.
type CreateReminderRuleRequest struct {
	Name             string              `json:"name" validate:"required"`
	Type             models.ReminderType `json:"type" validate:"required"`
	TriggerCondition string              `json:"trigger_condition,omitempty"`
	DaysBefore       int                 `json:"days_before" validate:"required,min=0"`
	MessageTemplate  string              `json:"message_template" validate:"required"`
	Active           bool                `json:"active"`
}

// UpdateReminderRuleRequest mutates an existing rule.
type UpdateReminderRuleRequest struct {
	Name            *string `json:"name,omitempty"`
	DaysBefore      *int    `json:"days_before,omitempty" validate:"omitempty,min=0"`
	MessageTemplate *string `json:"message_template,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}

// EvaluationResult summarises one reminder evaluation pass.
type EvaluationResult struct {
	EvaluatedAt time.Time `json:"evaluated_at"`
	RulesTotal  int       `json:"rules_total"`
	Matched     int       `json:"matched"`
	Dispatched  int       `json:"dispatched"`
	Deduped     int       `json:"deduped"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
}
