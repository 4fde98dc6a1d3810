package dto

import "github.com/harborlaw/immigration-crm-api/internal/models"

// SendNotificationRequest dispatches a one-off message through a channel.
type SendNotificationRequest struct {
	Channel    models.CommunicationChannel `json:"channel" validate:"required"`
	Recipient  string                      `json:"recipient" validate:"required"`
	Subject    string                      `json:"subject,omitempty"`
	Body       string                      `json:"body" validate:"required"`
	CaseNumber *string                     `json:"case_number,omitempty"`
}

// LogCommunicationRequest records an inbound or manual entry (e.g. a call).
type LogCommunicationRequest struct {
	Channel          models.CommunicationChannel   `json:"channel" validate:"required"`
	Direction        models.CommunicationDirection `json:"direction" validate:"required"`
	Subject          string                        `json:"subject,omitempty"`
	Content          string                        `json:"content" validate:"required"`
	RecipientName    string                        `json:"recipient_name,omitempty"`
	RecipientAddress string                        `json:"recipient_address,omitempty"`
	CaseNumber       *string                       `json:"case_number,omitempty"`
}
