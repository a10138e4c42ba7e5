package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/potrail/identity/pkg/errors"
)

// Claims represents the JWT claims for a session token.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies session tokens signed with the secrets
// held by a SecretStore. Tokens are self-contained: validity is determined by
// signature and expiry alone, never by server-side state.
type TokenManager struct {
	secrets *SecretStore
	expiry  time.Duration
	issuer  string
}

// NewTokenManager creates a token manager. Signing always uses the store's
// current secret; verification falls back to the previous secret so tokens
// survive one rotation.
func NewTokenManager(secrets *SecretStore, expiry time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secrets: secrets,
		expiry:  expiry,
		issuer:  issuer,
	}
}

// Sign creates a signed session token for the given account.
func (m *TokenManager) Sign(accountID, email, role string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secrets.Current())
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signedToken, nil
}

// Verify parses and validates a session token. The current secret is tried
// first; if the signature does not match and a previous secret exists (the
// rotation overlap window), that is tried before rejecting.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	current, previous := m.secrets.secrets()

	claims, err := m.parse(tokenString, current)
	if err == nil {
		return claims, nil
	}

	// Only a signature mismatch can be rescued by the previous secret; an
	// expired or malformed token fails the same way under any secret.
	if previous != nil && errors.Is(err, jwt.ErrSignatureInvalid) {
		if claims, prevErr := m.parse(tokenString, previous); prevErr == nil {
			return claims, nil
		}
	}

	return nil, apperrors.Unauthorized("invalid or expired token")
}

func (m *TokenManager) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}

	return claims, nil
}
