package models

import "time"

// LeadStatus enumerates the lead pipeline stages.
type LeadStatus string

const (
	LeadStatusNew                  LeadStatus = "NEW"
	LeadStatusContacted            LeadStatus = "CONTACTED"
	LeadStatusQualified            LeadStatus = "QUALIFIED"
	LeadStatusAppointmentScheduled LeadStatus = "APPOINTMENT_SCHEDULED"
	LeadStatusConverted            LeadStatus = "CONVERTED"
	LeadStatusLost                 LeadStatus = "LOST"
	LeadStatusArchived             LeadStatus = "ARCHIVED"
)

// IsTerminal reports whether the lead accepts no further mutation.
func (s LeadStatus) IsTerminal() bool {
	switch s {
	case LeadStatusConverted, LeadStatusLost, LeadStatusArchived:
		return true
	}
	return false
}

// LeadSource enumerates acquisition channels.
type LeadSource string

const (
	LeadSourceWebsite       LeadSource = "WEBSITE"
	LeadSourceReferral      LeadSource = "REFERRAL"
	LeadSourceSocialMedia   LeadSource = "SOCIAL_MEDIA"
	LeadSourcePhone         LeadSource = "PHONE"
	LeadSourceWalkIn        LeadSource = "WALK_IN"
	LeadSourceAdvertisement LeadSource = "ADVERTISEMENT"
)

// Priority is shared by leads and cases.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Lead represents a prospective client prior to case creation.
type Lead struct {
	ID              string     `db:"id" json:"id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Email           string     `db:"email" json:"email"`
	Phone           string     `db:"phone" json:"phone"`
	AlternatePhone  *string    `db:"alternate_phone" json:"alternate_phone,omitempty"`
	Source          LeadSource `db:"source" json:"source"`
	Status          LeadStatus `db:"status" json:"status"`
	Priority        Priority   `db:"priority" json:"priority"`
	AssignedTo      *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	ConvertedCaseID *string    `db:"converted_case_id" json:"converted_case_id,omitempty"`
	ConvertedAt     *time.Time `db:"converted_at" json:"converted_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the lead's name parts for notifications and case snapshots.
func (l *Lead) FullName() string {
	if l.FirstName == "" {
		return l.LastName
	}
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// LeadNote is a free-text note on a lead, ordered by creation time.
type LeadNote struct {
	ID        string    `db:"id" json:"id"`
	LeadID    string    `db:"lead_id" json:"lead_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	Pinned    bool      `db:"pinned" json:"pinned"`
	Internal  bool      `db:"internal" json:"internal"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LeadFilter captures filtering criteria for listing leads.
type LeadFilter struct {
	Status     []LeadStatus
	Source     LeadSource
	Priority   Priority
	AssignedTo string
	Search     string
	Page       int
	PageSize   int
}
