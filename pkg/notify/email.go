package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/harborlaw/immigration-crm-api/pkg/config"
)

// EmailSender delivers email through SendGrid.
type EmailSender struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
	enabled     bool
}

// NewEmailSender constructs a SendGrid-backed sender. When the provider is
// disabled or the API key is missing, Send reports a configuration error so
// callers can record the attempt as failed.
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	sender := &EmailSender{
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		enabled:     cfg.Enabled && cfg.APIKey != "",
	}
	if sender.enabled {
		sender.client = sendgrid.NewSendClient(cfg.APIKey)
	}
	return sender
}

// Send delivers a single email. Provider outages surface as errors, never panics.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if !s.enabled {
		return fmt.Errorf("email provider not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail("", msg.To)
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message: status %d", resp.StatusCode)
	}
	return nil
}
