package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunSender delivers mail through the Mailgun API.
type MailgunSender struct {
	client  *mailgun.MailgunImpl
	from    string
	baseURL string
}

// NewMailgunSender validates the Mailgun configuration and creates a sender.
func NewMailgunSender(cfg Config) (*MailgunSender, error) {
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	if cfg.MailgunDomain == "" || cfg.MailgunKey == "" {
		return nil, errors.New("email: incomplete mailgun configuration")
	}
	return &MailgunSender{
		client:  mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunKey),
		from:    cfg.From,
		baseURL: cfg.BaseURL,
	}, nil
}

// Send renders the template and submits it to Mailgun.
func (s *MailgunSender) Send(ctx context.Context, to, templateID string, vars map[string]string) error {
	subject, body, err := render(templateID, withBaseURL(vars, s.baseURL))
	if err != nil {
		return err
	}

	msg := s.client.NewMessage(s.from, subject, "", to)
	msg.SetHTML(body)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", templateID, err)
	}
	return nil
}
