package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// Hasher runs bcrypt hashing and verification on a bounded set of worker
// slots so CPU-bound hashing never monopolizes request-handling goroutines.
// Acquiring a slot respects context cancellation.
type Hasher struct {
	cost  int
	slots chan struct{}
}

// NewHasher creates a hasher with bcrypt cost 12 and one worker slot per CPU.
func NewHasher() *Hasher {
	return NewHasherWithCost(bcryptCost)
}

// NewHasherWithCost creates a hasher with an explicit bcrypt cost. Tests use
// bcrypt.MinCost to keep hashing fast.
func NewHasherWithCost(cost int) *Hasher {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return &Hasher{
		cost:  cost,
		slots: make(chan struct{}, n),
	}
}

// Hash computes the bcrypt hash of the given password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	var hash string
	err := h.run(ctx, func() error {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
		return nil
	})
	return hash, err
}

// Verify reports whether the password matches the stored hash. A mismatch is
// not an error; only malformed hashes or cancellation produce one.
func (h *Hasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	var ok bool
	err := h.run(ctx, func() error {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		switch {
		case err == nil:
			ok = true
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return nil
		default:
			return fmt.Errorf("verify password: %w", err)
		}
	})
	return ok, err
}

// run executes fn on one of the bounded worker slots, waiting for a free slot
// or context cancellation.
func (h *Hasher) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case h.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-h.slots }()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The worker finishes in the background and frees its slot; the
		// caller stops waiting.
		return ctx.Err()
	}
}
