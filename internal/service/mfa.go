package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/potrail/identity/internal/mfa"
	apperrors "github.com/potrail/identity/pkg/errors"
)

// MFAEnrollment is returned by EnableMFA so the caller can provision an
// authenticator app.
type MFAEnrollment struct {
	Secret          string
	ProvisioningURI string
}

// EnableMFA generates a fresh TOTP secret for the account and stores it
// in the unvalidated state. Re-enrolling before the first successful
// code verification replaces the secret; a validated enrollment must be
// disabled first.
func (s *IdentityService) EnableMFA(ctx context.Context, accountID string) (*MFAEnrollment, error) {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account.MFAEnabled && account.MFAValidated {
		return nil, apperrors.Conflict("mfa is already enabled for this account")
	}

	secret, err := s.mfa.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate mfa secret: %w", err)
	}

	account.MFASecret = secret
	account.MFAEnabled = true
	account.MFAValidated = false
	account.UpdatedAt = time.Now().UTC()

	if err := s.store.Repos().Accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("store mfa secret: %w", err)
	}

	s.logger.InfoContext(ctx, "mfa enrollment started",
		slog.String("account_id", account.ID),
	)

	return &MFAEnrollment{
		Secret:          secret,
		ProvisioningURI: s.mfa.ProvisioningURI(secret, account.Email),
	}, nil
}

// DisableMFA clears the account's TOTP secret and enrollment state.
func (s *IdentityService) DisableMFA(ctx context.Context, accountID string) error {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if !account.MFAEnabled {
		return apperrors.PolicyViolation(apperrors.CodeMFANotEnabled, "mfa is not enabled for this account")
	}

	account.MFASecret = ""
	account.MFAEnabled = false
	account.MFAValidated = false
	account.UpdatedAt = time.Now().UTC()

	if err := s.store.Repos().Accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("clear mfa secret: %w", err)
	}

	s.logger.InfoContext(ctx, "mfa disabled",
		slog.String("account_id", account.ID),
	)

	return nil
}

// VerifyMFACode checks a TOTP code against the account's secret. The
// first successful verification validates the enrollment; every
// successful verification records the caller's address as the trusted
// one.
func (s *IdentityService) VerifyMFACode(ctx context.Context, accountID, code, clientIP string) error {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if !account.MFAActive() {
		return apperrors.PolicyViolation(apperrors.CodeMFANotEnabled, "mfa is not enabled for this account")
	}

	ok, err := s.mfa.VerifyCode(account.MFASecret, code, time.Now())
	if err != nil {
		return fmt.Errorf("verify mfa code: %w", err)
	}
	if !ok {
		return apperrors.InvalidCredential("invalid mfa code")
	}

	account.MFAValidated = true
	if clientIP != "" {
		account.LastIP = &clientIP
	}
	account.UpdatedAt = time.Now().UTC()

	if err := s.store.Repos().Accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("store mfa validation: %w", err)
	}

	s.logger.InfoContext(ctx, "mfa code verified",
		slog.String("account_id", account.ID),
	)

	return nil
}

// MFAQRCode renders the account's provisioning URI as an SVG QR code.
func (s *IdentityService) MFAQRCode(ctx context.Context, accountID string) (string, error) {
	account, err := s.store.Repos().Accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if !account.MFAActive() {
		return "", apperrors.PolicyViolation(apperrors.CodeMFANotEnabled, "mfa is not enabled for this account")
	}

	svg, err := mfa.QRCodeSVG(s.mfa.ProvisioningURI(account.MFASecret, account.Email))
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}

	return svg, nil
}
