// Package repository defines the persistence interfaces used by the
// identity service. Implementations live in subpackages (currently
// postgres).
package repository

import (
	"context"
	"time"

	"github.com/potrail/identity/internal/domain"
)

// AccountRepository provides CRUD access to accounts.
type AccountRepository interface {
	// Create inserts a new account.
	Create(ctx context.Context, a *domain.Account) error

	// GetByID returns the account with the given id, or
	// apperrors.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByEmail returns the account with the given email, or
	// apperrors.ErrNotFound if it does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// List returns all accounts ordered by creation time.
	List(ctx context.Context) ([]domain.Account, error)

	// Update persists every mutable field of the account. It returns
	// apperrors.ErrNotFound if the account does not exist.
	Update(ctx context.Context, a *domain.Account) error

	// SetEmailConfirmed marks the account's email as confirmed.
	SetEmailConfirmed(ctx context.Context, id string) error

	// SetPassword replaces the password hash and sets the
	// password-reset-required flag to the given value.
	SetPassword(ctx context.Context, id, passwordHash string, resetRequired bool) error

	// RecordLogin updates last_seen, and last_ip when ip is non-nil.
	RecordLogin(ctx context.Context, id string, seenAt time.Time, ip *string) error

	// Delete removes the account. It returns apperrors.ErrNotFound if
	// the account does not exist.
	Delete(ctx context.Context, id string) error

	// DeleteUnconfirmedByID removes the account only if its email is
	// still unconfirmed. Removing a missing or confirmed account is
	// not an error.
	DeleteUnconfirmedByID(ctx context.Context, id string) error
}

// ConfirmationRepository stores pending email-confirmation requests.
type ConfirmationRepository interface {
	Create(ctx context.Context, r *domain.ConfirmationRequest) error

	// GetByEmailAndToken returns the request matching both the email
	// and the token, or apperrors.ErrNotFound.
	GetByEmailAndToken(ctx context.Context, email, token string) (*domain.ConfirmationRequest, error)

	// DeleteByID removes a request. Removing a missing request is not
	// an error.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByAccountID removes all requests belonging to an account.
	DeleteByAccountID(ctx context.Context, accountID string) error
}

// PasswordResetRepository stores pending password-reset requests.
type PasswordResetRepository interface {
	Create(ctx context.Context, r *domain.PasswordResetRequest) error

	// GetByEmailAndToken returns the request matching both the email
	// and the token, or apperrors.ErrNotFound.
	GetByEmailAndToken(ctx context.Context, email, token string) (*domain.PasswordResetRequest, error)

	// DeleteByID removes a request. Removing a missing request is not
	// an error.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByEmail removes all requests for an email address, used to
	// replace a prior request before issuing a new one.
	DeleteByEmail(ctx context.Context, email string) error
}

// Repositories bundles the repository set bound to a single database
// handle, either the pool or an open transaction.
type Repositories struct {
	Accounts       AccountRepository
	Confirmations  ConfirmationRepository
	PasswordResets PasswordResetRepository
}

// Store vends repositories and composes multi-statement transactions.
type Store interface {
	// Repos returns repositories bound to the connection pool. Each
	// call runs in its own implicit transaction.
	Repos() Repositories

	// WithinTx runs fn with repositories bound to a single database
	// transaction. The transaction commits when fn returns nil and
	// rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}
