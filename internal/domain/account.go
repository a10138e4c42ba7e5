package domain

import (
	"time"
)

// Account represents a registered user of the identity service.
type Account struct {
	ID                    string     `json:"id"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Role                  string     `json:"role"`
	EmailConfirmed        bool       `json:"email_confirmed"`
	PasswordResetRequired bool       `json:"password_reset_required"`
	MFASecret             string     `json:"-"`
	MFAEnabled            bool       `json:"mfa_enabled"`
	MFAValidated          bool       `json:"mfa_validated"`
	LastIP                *string    `json:"-"`
	LastSeen              *time.Time `json:"last_seen,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// MFAActive reports whether the account has an enabled MFA enrollment with a
// stored secret.
func (a *Account) MFAActive() bool {
	return a.MFAEnabled && a.MFASecret != ""
}

// SessionInfo is the authenticated view of an account returned to clients.
// RequiresMFAVerification is derived per request, never persisted: it signals
// the client to re-prompt for a TOTP code when the request originates from an
// IP the account has not verified from.
type SessionInfo struct {
	Account
	RequiresMFAVerification bool `json:"requires_mfa_verification"`
}

// ConfirmationRequest is an in-flight email confirmation for a freshly
// registered, unconfirmed account. At most one exists per registration; it is
// deleted on redemption or by the expiry cleanup.
type ConfirmationRequest struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Email     string    `json:"email"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordResetRequest is an in-flight password reset. At most one live
// request exists per email; issuing a new one replaces any prior request.
type PasswordResetRequest struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Email     string    `json:"email"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}
