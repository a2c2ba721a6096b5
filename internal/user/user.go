package user

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	maxEmailLength = 255
	maxNameLength  = 100
)

var (
	ErrUserNotFound       = fmt.Errorf("user not found: %w", appErrors.ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", appErrors.ErrUnauthenticated)
	ErrEmailAlreadyExists = appErrors.NewConflictError("email already exists")
	ErrInvalidEmail       = appErrors.NewValidationError("email address is not valid")
	ErrEmailLength        = appErrors.NewValidationErrorf("email address must be at most %d characters", maxEmailLength)
	ErrNameLength         = appErrors.NewValidationErrorf("name must be between 1 and %d characters", maxNameLength)
	ErrInvalidRole        = appErrors.NewValidationError("role must be 'user' or 'admin'")
	ErrWrongPassword      = appErrors.NewValidationError("current password is incorrect")
	ErrNothingToUpdate    = appErrors.NewValidationError("no profile fields to update")
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	HashToken    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims an address. Lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmailAddress(email string) error {
	if len(email) > maxEmailLength {
		return ErrEmailLength
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func validateName(name string) error {
	length := utf8.RuneCountInString(name)
	if length < 1 || length > maxNameLength {
		return ErrNameLength
	}
	return nil
}

func validateRole(role string) error {
	if role != RoleUser && role != RoleAdmin {
		return ErrInvalidRole
	}
	return nil
}

// generateHashToken returns the per-user secret that session tokens are bound
// to. Rotating it invalidates every outstanding session of the user.
func generateHashToken() (string, error) {
	token := make([]byte, 32)
	_, err := rand.Read(token)
	if err != nil {
		return "", fmt.Errorf("could not generate hash token: %w", err)
	}
	return hex.EncodeToString(token), nil
}
