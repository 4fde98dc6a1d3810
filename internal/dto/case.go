package dto

import (
	"time"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

// CreateCaseRequest opens a case directly, without a lead.
type CreateCaseRequest struct {
	ClientName     string             `json:"client_name" validate:"required"`
	ClientEmail    string             `json:"client_email" validate:"required,email"`
	ClientPhone    string             `json:"client_phone" validate:"required"`
	PassportNumber *string            `json:"passport_number,omitempty"`
	PassportExpiry *time.Time         `json:"passport_expiry,omitempty"`
	ServiceType    models.ServiceType `json:"service_type" validate:"required"`
	Tier           models.CaseTier    `json:"tier,omitempty"`
	Priority       models.Priority    `json:"priority,omitempty"`
	AssignedTo     *string            `json:"assigned_to,omitempty"`
	SMSEnabled     bool               `json:"sms_enabled"`
}

// UpdateCaseRequest mutates editable case fields. Status changes go through
// the transition endpoint, never through update.
type UpdateCaseRequest struct {
	ClientEmail    *string          `json:"client_email,omitempty" validate:"omitempty,email"`
	ClientPhone    *string          `json:"client_phone,omitempty"`
	PassportNumber *string          `json:"passport_number,omitempty"`
	PassportExpiry *time.Time       `json:"passport_expiry,omitempty"`
	Tier           *models.CaseTier `json:"tier,omitempty"`
	Priority       *models.Priority `json:"priority,omitempty"`
	AssignedTo     *string          `json:"assigned_to,omitempty"`
	SMSEnabled     *bool            `json:"sms_enabled,omitempty"`
}

// TransitionCaseRequest advances a case to the target status.
type TransitionCaseRequest struct {
	TargetStatus models.CaseStatus `json:"target_status" validate:"required"`
	Note         string            `json:"note,omitempty"`
}
