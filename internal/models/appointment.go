package models

import "time"

// AppointmentStatus enumerates scheduling outcomes. The decision states are
// terminal.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// IsDecided reports whether the appointment has reached a terminal state.
func (s AppointmentStatus) IsDecided() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// AppointmentType enumerates meeting purposes.
type AppointmentType string

const (
	AppointmentConsultation   AppointmentType = "consultation"
	AppointmentDocumentReview AppointmentType = "document_review"
	AppointmentInterviewPrep  AppointmentType = "interview_prep"
	AppointmentFollowUp       AppointmentType = "follow_up"
	AppointmentSubmission     AppointmentType = "submission"
)

// Appointment is a scheduled meeting, optionally tied to a case. Exactly one
// of Location and MeetingLink is meaningful depending on modality.
type Appointment struct {
	ID              string            `db:"id" json:"id"`
	CaseID          *string           `db:"case_id" json:"case_id,omitempty"`
	LeadID          *string           `db:"lead_id" json:"lead_id,omitempty"`
	ClientName      string            `db:"client_name" json:"client_name"`
	ClientEmail     string            `db:"client_email" json:"client_email"`
	ClientPhone     string            `db:"client_phone" json:"client_phone"`
	Title           string            `db:"title" json:"title"`
	Type            AppointmentType   `db:"type" json:"type"`
	Status          AppointmentStatus `db:"status" json:"status"`
	ScheduledAt     time.Time         `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Location        *string           `db:"location" json:"location,omitempty"`
	MeetingLink     *string           `db:"meeting_link" json:"meeting_link,omitempty"`
	Notes           string            `db:"notes" json:"notes"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter captures filtering criteria for listing appointments.
type AppointmentFilter struct {
	CaseID   string
	Status   []AppointmentStatus
	Type     AppointmentType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
