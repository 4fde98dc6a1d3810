package notify

import "context"

// Channel identifies the delivery medium for an outbound message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is a channel-agnostic outbound message. Subject and HTML are only
// meaningful for email.
type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
	HTML    string
}

// Sender delivers a message through one external provider. Implementations
// return an error on provider rejection or outage; they never retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
