// Package email delivers identity lifecycle mail (confirmation and
// password-reset links) through a pluggable provider.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
)

// Template identifiers. Each maps to an embedded HTML body and a subject.
const (
	TemplateConfirmEmail  = "confirm_email"
	TemplateResetPassword = "reset_password"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[string]string{
	TemplateConfirmEmail:  "Confirm your email address",
	TemplateResetPassword: "Reset Your Password",
}

// Sender delivers a templated message to a single recipient. Implementations
// must never log credentials or the variables they interpolate (they carry
// single-use tokens).
type Sender interface {
	Send(ctx context.Context, to, templateID string, vars map[string]string) error
}

// Config selects and configures the mail provider.
type Config struct {
	Provider string // "smtp" or "mailgun"

	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string

	MailgunDomain string
	MailgunKey    string

	// BaseURL is interpolated into the templates' action links.
	BaseURL string
}

// NewSender creates the configured provider.
func NewSender(cfg Config) (Sender, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPSender(cfg)
	case "mailgun":
		return NewMailgunSender(cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// render produces the HTML body for a template plus its subject line.
func render(templateID string, vars map[string]string) (subject, body string, err error) {
	subject, ok := subjects[templateID]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", templateID)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, templateID+".html", vars); err != nil {
		return "", "", fmt.Errorf("render email template %s: %w", templateID, err)
	}
	return subject, buf.String(), nil
}

func validateCommon(cfg Config) error {
	if cfg.From == "" {
		return errors.New("email: from address is required")
	}
	return nil
}

// withBaseURL copies vars and fills in the action-link base unless the
// caller already set one.
func withBaseURL(vars map[string]string, baseURL string) map[string]string {
	out := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	if _, ok := out["url"]; !ok {
		out["url"] = baseURL
	}
	return out
}
