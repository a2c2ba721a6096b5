package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	database "github.com/familyspend/ExpenseTracker/internal/db"
)

var ErrNoPendingReset = errors.New("no pending password reset")

type PasswordReset struct {
	UserID    uuid.UUID
	Secret    string
	ExpiresAt time.Time
	CreatedAt time.Time
	Attempts  int
}

type ResetRepository interface {
	SaveReset(ctx context.Context, reset PasswordReset) error
	GetReset(ctx context.Context, userID uuid.UUID) (*PasswordReset, error)
	DeleteReset(ctx context.Context, userID uuid.UUID) error
	// RecordFailedAttempt counts a wrong code and returns the new total.
	RecordFailedAttempt(ctx context.Context, userID uuid.UUID) (int, error)
}

type resetRepository struct {
	db *sql.DB
}

func NewResetRepository(db *sql.DB) ResetRepository {
	return &resetRepository{
		db: db,
	}
}

// SaveReset replaces any pending reset of the same user and clears its
// failed attempts. CreatedAt is the instant the code was issued.
func (r *resetRepository) SaveReset(ctx context.Context, reset PasswordReset) error {
	query := `
        INSERT INTO password_resets (user_id, secret, expires_at, created_at, attempts)
        VALUES ($1, $2, $3, $4, 0)
        ON CONFLICT (user_id) DO UPDATE
        SET secret = EXCLUDED.secret,
            expires_at = EXCLUDED.expires_at,
            created_at = EXCLUDED.created_at,
            attempts = 0
    `
	createdAt := reset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, reset.UserID, reset.Secret, reset.ExpiresAt, createdAt)
	if err != nil {
		return database.Classify(fmt.Errorf("could not save password reset: %w", err))
	}
	return nil
}

func (r *resetRepository) GetReset(ctx context.Context, userID uuid.UUID) (*PasswordReset, error) {
	var reset PasswordReset
	query := `
        SELECT user_id, secret, expires_at, created_at, attempts
        FROM password_resets
        WHERE user_id = $1
    `
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&reset.UserID, &reset.Secret, &reset.ExpiresAt, &reset.CreatedAt, &reset.Attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPendingReset
		}
		return nil, database.Classify(fmt.Errorf("could not load password reset: %w", err))
	}
	return &reset, nil
}

func (r *resetRepository) DeleteReset(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID)
	if err != nil {
		return database.Classify(fmt.Errorf("could not delete password reset: %w", err))
	}
	return nil
}

func (r *resetRepository) RecordFailedAttempt(ctx context.Context, userID uuid.UUID) (int, error) {
	var attempts int
	query := `
        UPDATE password_resets
        SET attempts = attempts + 1
        WHERE user_id = $1
        RETURNING attempts
    `
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoPendingReset
		}
		return 0, database.Classify(fmt.Errorf("could not record reset attempt: %w", err))
	}
	return attempts, nil
}
