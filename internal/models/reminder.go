package models

import "time"

// ReminderType identifies which entity field a rule is evaluated against.
type ReminderType string

const (
	ReminderPassportExpiry   ReminderType = "PASSPORT_EXPIRY"
	ReminderAppointment      ReminderType = "APPOINTMENT"
	ReminderDocumentDeadline ReminderType = "DOCUMENT_DEADLINE"
)

// ReminderRule is a declarative trigger producing a notification some offset
// before a deadline. Rules are configuration records; evaluation never
// mutates them.
type ReminderRule struct {
	ID               string       `db:"id" json:"id"`
	Name             string       `db:"name" json:"name"`
	Type             ReminderType `db:"type" json:"type"`
	TriggerCondition string       `db:"trigger_condition" json:"trigger_condition"`
	DaysBefore       int          `db:"days_before" json:"days_before"`
	MessageTemplate  string       `db:"message_template" json:"message_template"`
	Active           bool         `db:"active" json:"active"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}
