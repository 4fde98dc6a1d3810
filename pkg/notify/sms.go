package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harborlaw/immigration-crm-api/pkg/config"
)

// SMSSender delivers text messages through Twilio.
type SMSSender struct {
	client     *twilio.RestClient
	fromNumber string
	enabled    bool
}

// NewSMSSender constructs a Twilio-backed sender.
func NewSMSSender(cfg config.SMSConfig) *SMSSender {
	sender := &SMSSender{
		fromNumber: cfg.FromNumber,
		enabled:    cfg.Enabled && cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.FromNumber != "",
	}
	if sender.enabled {
		sender.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}
	return sender
}

// Send delivers a single SMS. The ctx parameter is accepted for interface
// symmetry; the Twilio REST client does not expose per-call contexts.
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	if !s.enabled {
		return fmt.Errorf("sms provider not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(s.fromNumber)
	params.SetBody(msg.Body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}
