package dto

import (
	"time"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

// CreateAppointmentRequest schedules a meeting. Location is required for
// in-person meetings, meeting link for remote ones; exactly one must be set.
type CreateAppointmentRequest struct {
	CaseID          *string                `json:"case_id,omitempty"`
	LeadID          *string                `json:"lead_id,omitempty"`
	ClientName      string                 `json:"client_name" validate:"required"`
	ClientEmail     string                 `json:"client_email" validate:"required,email"`
	ClientPhone     string                 `json:"client_phone,omitempty"`
	Title           string                 `json:"title" validate:"required"`
	Type            models.AppointmentType `json:"type" validate:"required"`
	ScheduledAt     time.Time              `json:"scheduled_at" validate:"required"`
	DurationMinutes int                    `json:"duration_minutes" validate:"required,min=5"`
	Location        *string                `json:"location,omitempty"`
	MeetingLink     *string                `json:"meeting_link,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

// DecideAppointmentRequest closes out an appointment.
type DecideAppointmentRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required"`
	Notes  string                   `json:"notes,omitempty"`
}
