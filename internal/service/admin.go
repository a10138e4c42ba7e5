package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/potrail/identity/internal/domain"
	"github.com/potrail/identity/internal/repository"
	apperrors "github.com/potrail/identity/pkg/errors"
)

// UpdateAccountInput holds the optional fields of an admin account
// update. Nil fields are left untouched.
type UpdateAccountInput struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Role           *string
	EmailConfirmed *bool
}

// ListAccounts returns every account.
func (s *IdentityService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.store.Repos().Accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount returns a single account by id.
func (s *IdentityService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// UpdateAccount applies an admin change-set to an account. Only the
// fields present in the input are modified.
func (s *IdentityService) UpdateAccount(ctx context.Context, accountID string, input UpdateAccountInput) (*domain.Account, error) {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		account.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		account.LastName = *input.LastName
	}
	if input.Email != nil {
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		account.Email = *input.Email
	}
	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", *input.Role))
		}
		account.Role = *input.Role
	}
	if input.EmailConfirmed != nil {
		account.EmailConfirmed = *input.EmailConfirmed
	}
	account.UpdatedAt = time.Now().UTC()

	if err := s.store.Repos().Accounts.Update(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("an account with this email already exists")
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	// Publish account updated event (non-blocking on failure).
	if err := s.producer.PublishAccountUpdated(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.updated event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account updated",
		slog.String("account_id", account.ID),
	)

	return account, nil
}

// DeleteAccount removes an account together with its pending
// confirmation and reset requests.
func (s *IdentityService) DeleteAccount(ctx context.Context, accountID string) error {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account for delete: %w", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Confirmations.DeleteByAccountID(ctx, account.ID); err != nil {
			return err
		}
		if err := r.PasswordResets.DeleteByEmail(ctx, account.Email); err != nil {
			return err
		}
		return r.Accounts.Delete(ctx, account.ID)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.producer.PublishAccountDeleted(ctx, account.ID, account.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.deleted event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account deleted",
		slog.String("account_id", account.ID),
	)

	return nil
}

// ForcePasswordReset flags the account so its next login is refused
// until the password is reset, then starts the reset flow on the
// account's behalf. A failure to send the reset email leaves the flag
// in place; the account holder can still request a reset themselves.
func (s *IdentityService) ForcePasswordReset(ctx context.Context, accountID string) error {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	account.PasswordResetRequired = true
	account.UpdatedAt = time.Now().UTC()
	if err := s.store.Repos().Accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("flag password reset: %w", err)
	}

	if err := s.RequestPasswordReset(ctx, account.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to start forced password reset",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset forced",
		slog.String("account_id", account.ID),
	)

	return nil
}

// AdminDisableMFA clears another account's MFA enrollment.
func (s *IdentityService) AdminDisableMFA(ctx context.Context, accountID string) error {
	if err := s.DisableMFA(ctx, accountID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "mfa disabled by admin",
		slog.String("account_id", accountID),
	)

	return nil
}
