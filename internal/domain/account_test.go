package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRoles_ContainsAll(t *testing.T) {
	roles := ValidRoles()
	expected := []string{RoleUser, RoleAdmin}
	assert.ElementsMatch(t, expected, roles)
}

func TestIsValidRole_ValidRoles(t *testing.T) {
	for _, r := range ValidRoles() {
		assert.True(t, IsValidRole(r), "expected %q to be valid", r)
	}
}

func TestIsValidRole_Invalid(t *testing.T) {
	assert.False(t, IsValidRole("unknown"))
	assert.False(t, IsValidRole(""))
	assert.False(t, IsValidRole("ADMIN"))
	assert.False(t, IsValidRole("superuser"))
}

func TestAccount_MFAActive(t *testing.T) {
	a := Account{}
	assert.False(t, a.MFAActive())

	a.MFAEnabled = true
	assert.False(t, a.MFAActive(), "enabled without a secret is not active")

	a.MFASecret = "JBSWY3DPEHPK3PXP"
	assert.True(t, a.MFAActive())

	a.MFAEnabled = false
	assert.False(t, a.MFAActive())
}

func TestAccount_DefaultFields(t *testing.T) {
	a := Account{}
	assert.False(t, a.EmailConfirmed)
	assert.False(t, a.PasswordResetRequired)
	assert.False(t, a.MFAValidated)
	assert.Nil(t, a.LastIP)
	assert.Nil(t, a.LastSeen)
}
