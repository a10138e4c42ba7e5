package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/potrail/identity/internal/domain"
	apperrors "github.com/potrail/identity/pkg/errors"
)

// PasswordResetRepository implements repository.PasswordResetRepository
// using PostgreSQL.
type PasswordResetRepository struct {
	db DB
}

// NewPasswordResetRepository creates a new PostgreSQL-backed
// password-reset-request repository.
func NewPasswordResetRepository(db DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create inserts a new password-reset request.
func (r *PasswordResetRepository) Create(ctx context.Context, req *domain.PasswordResetRequest) error {
	query := `
		INSERT INTO password_reset_requests (id, token, email, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, req.ID, req.Token, req.Email, req.AccountID, req.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert password reset request: %w", err)
	}

	return nil
}

// GetByEmailAndToken returns the request matching both email and token.
func (r *PasswordResetRepository) GetByEmailAndToken(ctx context.Context, email, token string) (*domain.PasswordResetRequest, error) {
	query := `
		SELECT id, token, email, account_id, created_at
		FROM password_reset_requests
		WHERE email = $1 AND token = $2`

	var req domain.PasswordResetRequest
	err := r.db.QueryRow(ctx, query, email, token).Scan(
		&req.ID,
		&req.Token,
		&req.Email,
		&req.AccountID,
		&req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan password reset request: %w", err)
	}

	return &req, nil
}

// DeleteByID removes a request. Missing rows are not an error.
func (r *PasswordResetRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM password_reset_requests WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete password reset request: %w", err)
	}

	return nil
}

// DeleteByEmail removes all requests for an email address.
func (r *PasswordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM password_reset_requests WHERE email = $1`

	if _, err := r.db.Exec(ctx, query, email); err != nil {
		return fmt.Errorf("delete password reset requests by email: %w", err)
	}

	return nil
}
