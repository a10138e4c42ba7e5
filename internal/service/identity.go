package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/potrail/identity/internal/auth"
	"github.com/potrail/identity/internal/domain"
	"github.com/potrail/identity/internal/email"
	"github.com/potrail/identity/internal/mfa"
	"github.com/potrail/identity/internal/password"
	"github.com/potrail/identity/internal/repository"
	"github.com/potrail/identity/internal/scheduler"
	apperrors "github.com/potrail/identity/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// EventPublisher publishes account domain events. Satisfied by
// event.Producer.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, a *domain.Account) error
	PublishAccountConfirmed(ctx context.Context, accountID, email string) error
	PublishAccountUpdated(ctx context.Context, a *domain.Account) error
	PublishAccountDeleted(ctx context.Context, accountID, email string) error
	PublishAccountPasswordReset(ctx context.Context, accountID, email string) error
}

// IdentityService implements the business logic for account and auth
// operations.
type IdentityService struct {
	store      repository.Store
	hasher     *password.Hasher
	tokens     *auth.TokenManager
	mfa        *mfa.Engine
	mailer     email.Sender
	producer   EventPublisher
	scheduler  *scheduler.Scheduler
	requestTTL time.Duration
	logger     *slog.Logger
}

// NewIdentityService creates a new identity service.
func NewIdentityService(
	store repository.Store,
	hasher *password.Hasher,
	tokens *auth.TokenManager,
	mfaEngine *mfa.Engine,
	mailer email.Sender,
	producer EventPublisher,
	sched *scheduler.Scheduler,
	requestTTL time.Duration,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		mfa:        mfaEngine,
		mailer:     mailer,
		producer:   producer,
		scheduler:  sched,
		requestTTL: requestTTL,
		logger:     logger,
	}
}

// --- Input/Output types ---

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput holds the parameters for account login.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Account                 *domain.Account
	Token                   string
	RequiresMFAVerification bool
}

// --- Registration saga ---

// Register creates an unconfirmed account together with its email
// confirmation request, sends the confirmation email, and arms a
// cleanup timer that discards both if the email is never confirmed.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New().String(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	request := &domain.ConfirmationRequest{
		ID:        uuid.New().String(),
		Token:     uuid.New().String(),
		Email:     account.Email,
		AccountID: account.ID,
		CreatedAt: now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Accounts.Create(ctx, account); err != nil {
			return err
		}
		return r.Confirmations.Create(ctx, request)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("an account with this email already exists")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	vars := map[string]string{
		"first_name": account.FirstName,
		"email":      account.Email,
		"token":      request.Token,
	}
	if err := s.mailer.Send(ctx, account.Email, email.TemplateConfirmEmail, vars); err != nil {
		s.compensateRegistration(ctx, account.ID)
		return nil, fmt.Errorf("send confirmation email: %w", err)
	}

	s.armRegistrationCleanup(account.ID)

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishAccountRegistered(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.registered event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
	)

	return account, nil
}

// compensateRegistration removes the account and its confirmation
// request after a failure later in the registration saga. Failures here
// are logged; the cleanup timer is not armed, so leftovers would need
// manual removal.
func (s *IdentityService) compensateRegistration(ctx context.Context, accountID string) {
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Confirmations.DeleteByAccountID(ctx, accountID); err != nil {
			return err
		}
		return r.Accounts.DeleteUnconfirmedByID(ctx, accountID)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back registration",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}
}

// armRegistrationCleanup schedules removal of the pending account once
// the confirmation window has passed. The task repeats on failure and
// stops itself after a successful sweep.
func (s *IdentityService) armRegistrationCleanup(accountID string) {
	s.scheduler.Schedule(s.requestTTL, func(ctx context.Context, h *scheduler.Handle) error {
		err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
			if err := r.Confirmations.DeleteByAccountID(ctx, accountID); err != nil {
				return err
			}
			return r.Accounts.DeleteUnconfirmedByID(ctx, accountID)
		})
		if err != nil {
			return fmt.Errorf("clean up pending registration: %w", err)
		}
		h.Stop()
		return nil
	})
}

// ConfirmEmail marks the account behind the confirmation request as
// confirmed and removes the request.
func (s *IdentityService) ConfirmEmail(ctx context.Context, emailAddr, token string) error {
	if emailAddr == "" || token == "" {
		return apperrors.InvalidInput("email and token are required")
	}

	var accountID string
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		request, err := r.Confirmations.GetByEmailAndToken(ctx, emailAddr, token)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFoundMsg("confirmation request not found")
			}
			return err
		}
		accountID = request.AccountID

		if err := r.Accounts.SetEmailConfirmed(ctx, request.AccountID); err != nil {
			return fmt.Errorf("confirm account email: %w", err)
		}
		return r.Confirmations.DeleteByID(ctx, request.ID)
	})
	if err != nil {
		return err
	}

	if err := s.producer.PublishAccountConfirmed(ctx, accountID, emailAddr); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.confirmed event",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account email confirmed",
		slog.String("account_id", accountID),
	)

	return nil
}

// --- Password-reset saga ---

// RequestPasswordReset starts the password-reset flow for the given
// email. It reports success even when no such account exists so that
// the endpoint cannot be used to probe for registered addresses.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if emailAddr == "" {
		return apperrors.InvalidInput("email is required")
	}

	account, err := s.store.Repos().Accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("look up account: %w", err)
	}

	request := &domain.PasswordResetRequest{
		ID:        uuid.New().String(),
		Token:     uuid.New().String(),
		Email:     account.Email,
		AccountID: account.ID,
		CreatedAt: time.Now().UTC(),
	}

	// A new request replaces any outstanding one for the same email.
	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.PasswordResets.DeleteByEmail(ctx, account.Email); err != nil {
			return err
		}
		return r.PasswordResets.Create(ctx, request)
	})
	if err != nil {
		return fmt.Errorf("create password reset request: %w", err)
	}

	vars := map[string]string{
		"first_name": account.FirstName,
		"email":      account.Email,
		"token":      request.Token,
	}
	if err := s.mailer.Send(ctx, account.Email, email.TemplateResetPassword, vars); err != nil {
		s.compensatePasswordReset(ctx, request.ID)
		return fmt.Errorf("send password reset email: %w", err)
	}

	s.armPasswordResetCleanup(request.ID)

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("account_id", account.ID),
	)

	return nil
}

func (s *IdentityService) compensatePasswordReset(ctx context.Context, requestID string) {
	if err := s.store.Repos().PasswordResets.DeleteByID(ctx, requestID); err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back password reset request",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
	}
}

// armPasswordResetCleanup schedules removal of a pending reset request
// once its window has passed.
func (s *IdentityService) armPasswordResetCleanup(requestID string) {
	s.scheduler.Schedule(s.requestTTL, func(ctx context.Context, h *scheduler.Handle) error {
		if err := s.store.Repos().PasswordResets.DeleteByID(ctx, requestID); err != nil {
			return fmt.Errorf("clean up password reset request: %w", err)
		}
		h.Stop()
		return nil
	})
}

// ResetPassword completes the password-reset flow. It replaces the
// password hash, clears any forced-reset flag, and removes the request.
func (s *IdentityService) ResetPassword(ctx context.Context, emailAddr, token, newPassword string) error {
	if emailAddr == "" || token == "" {
		return apperrors.InvalidInput("email and token are required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	request, err := s.store.Repos().PasswordResets.GetByEmailAndToken(ctx, emailAddr, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFoundMsg("invalid or expired reset token")
		}
		return fmt.Errorf("look up reset request: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Accounts.SetPassword(ctx, request.AccountID, hash, false); err != nil {
			return err
		}
		return r.PasswordResets.DeleteByID(ctx, request.ID)
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.producer.PublishAccountPasswordReset(ctx, request.AccountID, request.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.password_reset event",
			slog.String("account_id", request.AccountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("account_id", request.AccountID),
	)

	return nil
}

// --- Login ---

// Login authenticates an account with email and password and issues a
// bearer token. last_seen is always refreshed; last_ip is left alone
// when a validated MFA enrollment pins it to a different address, so
// that the next MFA verification can re-establish trust for the new
// address.
func (s *IdentityService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	var account *domain.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		account, err = r.Accounts.GetByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFoundMsg("account not found")
			}
			return err
		}

		ok, err := s.hasher.Verify(ctx, input.Password, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return apperrors.InvalidCredential("invalid credentials")
		}

		if !account.EmailConfirmed {
			return apperrors.PolicyViolation(apperrors.CodeEmailNotConfirmed, "email address is not confirmed")
		}
		if account.PasswordResetRequired {
			return apperrors.PolicyViolation(apperrors.CodePasswordResetRequired, "a password reset is required before logging in")
		}

		return r.Accounts.RecordLogin(ctx, account.ID, time.Now().UTC(), s.loginIP(account, input.ClientIP))
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Sign(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", account.ID),
	)

	return &LoginResult{
		Account:                 account,
		Token:                   token,
		RequiresMFAVerification: requiresMFAVerification(account, input.ClientIP),
	}, nil
}

// loginIP decides which client address to record on login. The stored
// address is kept when it anchors a validated MFA enrollment and the
// caller connects from somewhere else.
func (s *IdentityService) loginIP(account *domain.Account, clientIP string) *string {
	if clientIP == "" {
		return nil
	}
	if account.MFAActive() && account.MFAValidated &&
		account.LastIP != nil && *account.LastIP != clientIP {
		return nil
	}
	return &clientIP
}

// requiresMFAVerification reports whether the caller must re-verify a
// TOTP code before the session is fully trusted.
func requiresMFAVerification(account *domain.Account, clientIP string) bool {
	return account.MFAActive() && account.MFAValidated &&
		account.LastIP != nil && *account.LastIP != clientIP
}

// SessionInfo returns the account together with its ambient-trust
// verdict for the calling address.
func (s *IdentityService) SessionInfo(ctx context.Context, accountID, clientIP string) (*domain.SessionInfo, error) {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &domain.SessionInfo{
		Account:                 *account,
		RequiresMFAVerification: requiresMFAVerification(account, clientIP),
	}, nil
}

// --- Helpers ---

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pw {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
