package models

import "time"

// CommunicationChannel enumerates message media.
type CommunicationChannel string

const (
	CommChannelEmail CommunicationChannel = "email"
	CommChannelSMS   CommunicationChannel = "sms"
	CommChannelCall  CommunicationChannel = "call"
)

// CommunicationDirection distinguishes inbound from outbound traffic.
type CommunicationDirection string

const (
	CommDirectionInbound  CommunicationDirection = "inbound"
	CommDirectionOutbound CommunicationDirection = "outbound"
)

// CommunicationStatus is the delivery outcome. The terminal set depends on
// channel semantics: outbound messages end sent/delivered/failed, inbound
// entries are recorded as received.
type CommunicationStatus string

const (
	CommStatusSent      CommunicationStatus = "sent"
	CommStatusDelivered CommunicationStatus = "delivered"
	CommStatusFailed    CommunicationStatus = "failed"
	CommStatusReceived  CommunicationStatus = "received"
)

// Communication is a logged message with a recipient snapshot.
type Communication struct {
	ID               string                 `db:"id" json:"id"`
	Channel          CommunicationChannel   `db:"channel" json:"channel"`
	Direction        CommunicationDirection `db:"direction" json:"direction"`
	Subject          string                 `db:"subject" json:"subject"`
	Content          string                 `db:"content" json:"content"`
	Status           CommunicationStatus    `db:"status" json:"status"`
	RecipientName    string                 `db:"recipient_name" json:"recipient_name"`
	RecipientAddress string                 `db:"recipient_address" json:"recipient_address"`
	CaseNumber       *string                `db:"case_number" json:"case_number,omitempty"`
	CreatedAt        time.Time              `db:"created_at" json:"created_at"`
}

// CommunicationFilter captures filtering criteria for the log view.
type CommunicationFilter struct {
	Channel    CommunicationChannel
	Direction  CommunicationDirection
	Status     CommunicationStatus
	CaseNumber string
	Page       int
	PageSize   int
}
