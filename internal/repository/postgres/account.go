package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/potrail/identity/internal/domain"
	apperrors "github.com/potrail/identity/pkg/errors"
)

const accountColumns = `id, first_name, last_name, email, password_hash, role,
		email_confirmed, password_reset_required,
		mfa_secret, mfa_enabled, mfa_validated,
		last_ip, last_seen, created_at, updated_at`

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, first_name, last_name, email, password_hash, role,
			email_confirmed, password_reset_required,
			mfa_secret, mfa_enabled, mfa_validated,
			last_ip, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.FirstName,
		a.LastName,
		a.Email,
		a.PasswordHash,
		a.Role,
		a.EmailConfirmed,
		a.PasswordResetRequired,
		a.MFASecret,
		a.MFAEnabled,
		a.MFAValidated,
		a.LastIP,
		a.LastSeen,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID returns the account with the given id.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(ctx, query, id)
}

// GetByEmail returns the account with the given email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanAccount(ctx, query, email)
}

// List returns all accounts ordered by creation time.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := scanAccountRow(rows, &a); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Update persists every mutable field of the account.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	query := `
		UPDATE accounts
		SET first_name = $2, last_name = $3, email = $4, password_hash = $5, role = $6,
			email_confirmed = $7, password_reset_required = $8,
			mfa_secret = $9, mfa_enabled = $10, mfa_validated = $11,
			last_ip = $12, last_seen = $13, updated_at = $14
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query,
		a.ID,
		a.FirstName,
		a.LastName,
		a.Email,
		a.PasswordHash,
		a.Role,
		a.EmailConfirmed,
		a.PasswordResetRequired,
		a.MFASecret,
		a.MFAEnabled,
		a.MFAValidated,
		a.LastIP,
		a.LastSeen,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("update account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SetEmailConfirmed marks the account's email as confirmed.
func (r *AccountRepository) SetEmailConfirmed(ctx context.Context, id string) error {
	query := `UPDATE accounts SET email_confirmed = TRUE, updated_at = NOW() WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("confirm account email: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SetPassword replaces the password hash and the reset-required flag.
func (r *AccountRepository) SetPassword(ctx context.Context, id, passwordHash string, resetRequired bool) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, password_reset_required = $3, updated_at = NOW()
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id, passwordHash, resetRequired)
	if err != nil {
		return fmt.Errorf("set account password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// RecordLogin updates last_seen, and last_ip when ip is non-nil.
func (r *AccountRepository) RecordLogin(ctx context.Context, id string, seenAt time.Time, ip *string) error {
	query := `
		UPDATE accounts
		SET last_seen = $2, last_ip = COALESCE($3, last_ip), updated_at = NOW()
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id, seenAt, ip)
	if err != nil {
		return fmt.Errorf("record account login: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes the account.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// DeleteUnconfirmedByID removes the account only while its email is
// still unconfirmed.
func (r *AccountRepository) DeleteUnconfirmedByID(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1 AND email_confirmed = FALSE`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete unconfirmed account: %w", err)
	}

	return nil
}

// scanAccount executes a query expected to return a single account row.
func (r *AccountRepository) scanAccount(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var a domain.Account

	err := scanAccountRow(r.db.QueryRow(ctx, query, args...), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &a, nil
}

func scanAccountRow(row pgx.Row, a *domain.Account) error {
	return row.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.EmailConfirmed,
		&a.PasswordResetRequired,
		&a.MFASecret,
		&a.MFAEnabled,
		&a.MFAValidated,
		&a.LastIP,
		&a.LastSeen,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
