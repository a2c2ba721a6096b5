package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	database "github.com/familyspend/ExpenseTracker/internal/db"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePasswordAndHashToken(ctx context.Context, userID uuid.UUID, passwordHash, hashToken string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

const userColumns = `id, email, name, role, password_hash, hash_token, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.HashToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, database.Classify(fmt.Errorf("could not find user: %w", err))
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, name, role, password_hash, hash_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Name, user.Role, user.PasswordHash, user.HashToken).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return ErrEmailAlreadyExists
		}
		return database.Classify(fmt.Errorf("could not create user: %w", err))
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, database.Classify(err)
	}
	return exists, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Name, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if _, ok := database.UniqueViolation(err); ok {
			return ErrEmailAlreadyExists
		}
		return database.Classify(fmt.Errorf("could not update user: %w", err))
	}
	return nil
}

func (r *userRepository) UpdatePasswordAndHashToken(ctx context.Context, userID uuid.UUID, passwordHash, hashToken string) error {
	query := `
		UPDATE users
		SET password_hash = $1,
			hash_token = $2,
			updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, hashToken, userID)
	if err != nil {
		return database.Classify(fmt.Errorf("could not update password: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return database.Classify(err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
