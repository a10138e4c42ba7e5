package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/potrail/identity/internal/domain"
	apperrors "github.com/potrail/identity/pkg/errors"
)

// ConfirmationRepository implements repository.ConfirmationRepository
// using PostgreSQL.
type ConfirmationRepository struct {
	db DB
}

// NewConfirmationRepository creates a new PostgreSQL-backed
// confirmation-request repository.
func NewConfirmationRepository(db DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// Create inserts a new confirmation request.
func (r *ConfirmationRepository) Create(ctx context.Context, req *domain.ConfirmationRequest) error {
	query := `
		INSERT INTO confirmation_requests (id, token, email, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, req.ID, req.Token, req.Email, req.AccountID, req.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert confirmation request: %w", err)
	}

	return nil
}

// GetByEmailAndToken returns the request matching both email and token.
func (r *ConfirmationRepository) GetByEmailAndToken(ctx context.Context, email, token string) (*domain.ConfirmationRequest, error) {
	query := `
		SELECT id, token, email, account_id, created_at
		FROM confirmation_requests
		WHERE email = $1 AND token = $2`

	var req domain.ConfirmationRequest
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
		return nil, fmt.Errorf("scan confirmation request: %w", err)
	}

	return &req, nil
}

// DeleteByID removes a request. Missing rows are not an error.
func (r *ConfirmationRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM confirmation_requests WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete confirmation request: %w", err)
	}

	return nil
}

// DeleteByAccountID removes all requests belonging to an account.
func (r *ConfirmationRepository) DeleteByAccountID(ctx context.Context, accountID string) error {
	query := `DELETE FROM confirmation_requests WHERE account_id = $1`

	if _, err := r.db.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("delete confirmation requests by account: %w", err)
	}

	return nil
}
