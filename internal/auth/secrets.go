package auth

import (
	"sync"

	"github.com/google/uuid"
)

// SecretStore holds the current and previous token signing secrets.
// The previous secret is kept so tokens issued before a rotation keep
// verifying for one rotation window; it is never used for issuance.
//
// Construction is initialization: a SecretStore always holds a usable current
// secret. Using a nil store is a programming error and panics.
type SecretStore struct {
	mu       sync.RWMutex
	current  []byte
	previous []byte
}

// NewSecretStore creates a secret store with a freshly generated secret.
func NewSecretStore() *SecretStore {
	return &SecretStore{current: generateSecret()}
}

// NewSecretStoreWithSecret creates a secret store seeded with an explicit
// secret, for deployments that pin the initial secret via configuration.
func NewSecretStoreWithSecret(secret []byte) *SecretStore {
	if len(secret) == 0 {
		return NewSecretStore()
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &SecretStore{current: cp}
}

// generateSecret returns a cryptographically random secret built from two
// concatenated UUIDv4 strings.
func generateSecret() []byte {
	return []byte(uuid.NewString() + uuid.NewString())
}

// Current returns a copy of the current signing secret.
func (s *SecretStore) Current() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]byte, len(s.current))
	copy(cp, s.current)
	return cp
}

// Rotate generates a fresh current secret and demotes the old current to
// previous. Any older previous secret is discarded, which is the only
// revocation mechanism for self-contained tokens.
func (s *SecretStore) Rotate() {
	fresh := generateSecret()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = s.current
	s.current = fresh
}

// secrets returns the current secret and, if set, the previous one. Used by
// verification, which tries current first.
func (s *SecretStore) secrets() ([]byte, []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.previous
}
