package dto

import "github.com/harborlaw/immigration-crm-api/internal/models"

// CreateLeadRequest is the intake payload for a new lead.
type CreateLeadRequest struct {
	FirstName      string            `json:"first_name" validate:"required"`
	LastName       string            `json:"last_name" validate:"required"`
	Email          string            `json:"email" validate:"required,email"`
	Phone          string            `json:"phone" validate:"required"`
	AlternatePhone *string           `json:"alternate_phone,omitempty"`
	Source         models.LeadSource `json:"source" validate:"required"`
	Priority       models.Priority   `json:"priority,omitempty"`
	AssignedTo     *string           `json:"assigned_to,omitempty"`
}

// UpdateLeadRequest mutates editable lead fields. Nil fields are untouched.
type UpdateLeadRequest struct {
	FirstName      *string            `json:"first_name,omitempty"`
	LastName       *string            `json:"last_name,omitempty"`
	Email          *string            `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string            `json:"phone,omitempty"`
	AlternatePhone *string            `json:"alternate_phone,omitempty"`
	Priority       *models.Priority   `json:"priority,omitempty"`
	Status         *models.LeadStatus `json:"status,omitempty"`
	AssignedTo     *string            `json:"assigned_to,omitempty"`
}

// AddLeadNoteRequest appends a note to a lead.
type AddLeadNoteRequest struct {
	Content  string `json:"content" validate:"required"`
	Pinned   bool   `json:"pinned"`
	Internal bool   `json:"internal"`
}

// ConvertLeadRequest turns a lead into a case.
type ConvertLeadRequest struct {
	ServiceType models.ServiceType `json:"service_type" validate:"required"`
	Tier        models.CaseTier    `json:"tier,omitempty"`
	Priority    models.Priority    `json:"priority,omitempty"`
	AssignedTo  *string            `json:"assigned_to,omitempty"`
	SMSEnabled  bool               `json:"sms_enabled"`
}

// ConvertLeadResponse reports the conversion outcome.
type ConvertLeadResponse struct {
	Lead models.Lead `json:"lead"`
	Case models.Case `json:"case"`
}
