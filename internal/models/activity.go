package models

import "time"

// Activity type constants represent actions recorded on the trail.
const (
	ActivityCreated        = "created"
	ActivityUpdated        = "updated"
	ActivityStatusChange   = "status_change"
	ActivityNoteAdded      = "note_added"
	ActivityConverted      = "converted"
	ActivityDocumentReview = "document_review"
	ActivityNotification   = "notification"
)

// EntityType constants for activity records.
const (
	EntityLead        = "lead"
	EntityCase        = "case"
	EntityDocument    = "document"
	EntityAppointment = "appointment"
)

// Activity is one entry in the cross-entity audit trail.
type Activity struct {
	ID          string    `db:"id" json:"id"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Type        string    `db:"type" json:"type"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	Description string    `db:"description" json:"description"`
	Metadata    []byte    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActivityFilter captures filtering criteria for the activity log.
type ActivityFilter struct {
	EntityType string
	EntityID   string
	Type       string
	ActorID    string
	Page       int
	PageSize   int
}
