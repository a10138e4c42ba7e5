package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	baseURL  string
}

// NewSMTPSender validates the SMTP configuration and creates a sender.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}
	if cfg.SMTPHost == "" || cfg.SMTPPort == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("email: incomplete smtp configuration")
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		baseURL:  cfg.BaseURL,
	}, nil
}

// Send renders the template and hands it to the relay. Errors are returned
// without the relay credentials ever appearing in their text.
func (s *SMTPSender) Send(_ context.Context, to, templateID string, vars map[string]string) error {
	subject, body, err := render(templateID, withBaseURL(vars, s.baseURL))
	if err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		to, s.from, subject, body,
	))

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send %s email: %w", templateID, err)
	}
	return nil
}
