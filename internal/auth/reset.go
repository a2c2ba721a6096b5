package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	resetCodeIssuer   = "ExpenseTracker"
	resetCodeValidity = 10 * time.Minute
	// resetResendCooldown suppresses a second email while a fresh code is pending.
	resetResendCooldown = time.Minute
	// maxResetAttempts wrong codes discard the pending reset.
	maxResetAttempts = 5
)

// Codes are derived at the instant they were issued, so exactly one code
// matches a stored secret. The stored expiry bounds how long it is accepted.
var resetCodeOpts = totp.ValidateOpts{
	Period:    uint(resetCodeValidity / time.Second),
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ResetCodes issues one-time password reset codes. Each request gets a fresh
// TOTP secret.
type ResetCodes struct{}

func NewResetCodes() *ResetCodes {
	return &ResetCodes{}
}

// Generate returns a new secret and the code for issuedAt that goes out by
// email.
func (g *ResetCodes) Generate(email string, issuedAt time.Time) (secret, code string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      resetCodeIssuer,
		AccountName: email,
		Period:      resetCodeOpts.Period,
		Digits:      resetCodeOpts.Digits,
		Algorithm:   resetCodeOpts.Algorithm,
	})
	if err != nil {
		return "", "", fmt.Errorf("could not generate reset secret: %w", err)
	}

	code, err = totp.GenerateCodeCustom(key.Secret(), issuedAt, resetCodeOpts)
	if err != nil {
		return "", "", fmt.Errorf("could not generate reset code: %w", err)
	}
	return key.Secret(), code, nil
}

// Verify reports whether code is the one issued for secret at issuedAt.
func (g *ResetCodes) Verify(secret, code string, issuedAt time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, issuedAt, resetCodeOpts)
	return err == nil && valid
}
