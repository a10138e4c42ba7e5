package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/potrail/identity/pkg/errors"
)

func TestEnableMFA_StoresUnvalidatedSecret(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("Update", mock.Anything, account).Return(nil)

	enrollment, err := f.svc.EnableMFA(context.Background(), account.ID)

	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.True(t, strings.HasPrefix(enrollment.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, enrollment.ProvisioningURI, enrollment.Secret)

	assert.Equal(t, enrollment.Secret, account.MFASecret)
	assert.True(t, account.MFAEnabled)
	assert.False(t, account.MFAValidated)
}

func TestEnableMFA_ValidatedEnrollmentConflicts(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)
	account.MFASecret = "EXISTING"
	account.MFAEnabled = true
	account.MFAValidated = true

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	enrollment, err := f.svc.EnableMFA(context.Background(), account.ID)

	assert.Nil(t, enrollment)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.accounts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestEnableMFA_ReEnrollBeforeValidationReplacesSecret(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)
	account.MFASecret = "OLDSECRET"
	account.MFAEnabled = true
	account.MFAValidated = false

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("Update", mock.Anything, account).Return(nil)

	enrollment, err := f.svc.EnableMFA(context.Background(), account.ID)

	require.NoError(t, err)
	assert.NotEqual(t, "OLDSECRET", enrollment.Secret)
	assert.Equal(t, enrollment.Secret, account.MFASecret)
}

func TestVerifyMFACode_ValidatesAndPinsAddress(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)

	secret, err := f.mfa.GenerateSecret()
	require.NoError(t, err)
	account.MFASecret = secret
	account.MFAEnabled = true
	account.MFAValidated = false

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("Update", mock.Anything, account).Return(nil)

	code, err := f.mfa.CurrentCode(secret)
	require.NoError(t, err)

	err = f.svc.VerifyMFACode(context.Background(), account.ID, code, "203.0.113.7")

	require.NoError(t, err)
	assert.True(t, account.MFAValidated)
	require.NotNil(t, account.LastIP)
	assert.Equal(t, "203.0.113.7", *account.LastIP)
}

func TestVerifyMFACode_WrongCode(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)

	secret, err := f.mfa.GenerateSecret()
	require.NoError(t, err)
	account.MFASecret = secret
	account.MFAEnabled = true

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	// A code from the distant past cannot fall inside the drift window.
	stale, err := f.mfa.CodeAt(secret, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	err = f.svc.VerifyMFACode(context.Background(), account.ID, stale, "203.0.113.7")

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredential)
	assert.False(t, account.MFAValidated)
	f.accounts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestVerifyMFACode_NotEnabled(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	err := f.svc.VerifyMFACode(context.Background(), account.ID, "123456", "203.0.113.7")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeMFANotEnabled, appErr.Code)
}

func TestDisableMFA_ClearsEnrollment(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)
	trusted := "198.51.100.1"
	account.MFASecret = "SECRETSECRET"
	account.MFAEnabled = true
	account.MFAValidated = true
	account.LastIP = &trusted

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("Update", mock.Anything, account).Return(nil)

	err := f.svc.DisableMFA(context.Background(), account.ID)

	require.NoError(t, err)
	assert.Empty(t, account.MFASecret)
	assert.False(t, account.MFAEnabled)
	assert.False(t, account.MFAValidated)
}

func TestDisableMFA_NotEnabled(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	err := f.svc.DisableMFA(context.Background(), account.ID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeMFANotEnabled, appErr.Code)
}

func TestMFAQRCode_RendersProvisioningURI(t *testing.T) {
	f := newFixture(t)
	account := confirmedAccount(t, f)

	secret, err := f.mfa.GenerateSecret()
	require.NoError(t, err)
	account.MFASecret = secret
	account.MFAEnabled = true

	f.accounts.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	svg, err := f.svc.MFAQRCode(context.Background(), account.ID)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "</svg>")
}
