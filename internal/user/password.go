package user

import (
	"crypto/sha256"
	"encoding/base64"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

const (
	DefaultBcryptCost = 12
	minPasswordLength = 8
	maxPasswordLength = 100
)

var (
	ErrPasswordLength   = appErrors.NewValidationErrorf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	ErrPasswordNoLetter = appErrors.NewValidationError("password must contain at least one letter")
	ErrPasswordNoDigit  = appErrors.NewValidationError("password must contain at least one digit")
)

// Credentials hashes and verifies passwords with bcrypt. Passwords are
// digested with SHA-256 first because bcrypt only reads 72 bytes, and the
// policy allows 100 characters of any script.
type Credentials struct {
	cost int
}

func NewCredentials(cost int) *Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Credentials{cost: cost}
}

func (c *Credentials) Hash(password string) (string, error) {
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword(prehash(password), c.cost)
	if err != nil {
		return "", err
	}
	return string(hashedPasswordBytes), nil
}

func (c *Credentials) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(password))
	return err == nil
}

// prehash encodes the digest so no NUL byte reaches bcrypt.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// ValidatePassword applies the acceptance policy before anything is hashed.
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < minPasswordLength || length > maxPasswordLength {
		return ErrPasswordLength
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	var errs appErrors.ValidationErrors
	if !hasLetter {
		errs.Add(ErrPasswordNoLetter)
	}
	if !hasDigit {
		errs.Add(ErrPasswordNoDigit)
	}
	return errs.ErrOrNil()
}
