package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

var (
	ErrInvalidSession = fmt.Errorf("session token is invalid: %w", appErrors.ErrUnauthenticated)
	ErrExpiredSession = fmt.Errorf("session token is expired: %w", appErrors.ErrUnauthenticated)
)

const DefaultSessionDuration = 30 * 24 * time.Hour

// Session is the identity carried by a session token.
type Session struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Binding   string    `json:"-"`
}

func (s *Session) IsAdmin() bool {
	return s.Role == user.RoleAdmin
}

type sessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	CusKey string `json:"cus_key"`
	jwt.RegisteredClaims
}

// SessionCodec signs and parses stateless HS256 session tokens. A token stays
// valid until it expires or the user's hash token rotates.
type SessionCodec struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewSessionCodec(secret string, duration time.Duration) *SessionCodec {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionCodec{
		secret:   []byte(secret),
		duration: duration,
		now:      time.Now,
	}
}

// BindingFor ties a token to the current hash token of its user.
func BindingFor(userID uuid.UUID, hashToken string) string {
	h := hmac.New(sha256.New, []byte(hashToken))
	h.Write([]byte(userID.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *SessionCodec) Issue(u *user.User) (string, *Session, error) {
	issuedAt := c.now().UTC().Truncate(time.Second)
	session := &Session{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(c.duration),
		Binding:   BindingFor(u.ID, u.HashToken),
	}

	claims := &sessionClaims{
		UserID: session.UserID.String(),
		Email:  session.Email,
		Name:   session.Name,
		Role:   session.Role,
		CusKey: session.Binding,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("could not sign session token: %w", err)
	}
	return token, session, nil
}

// Parse returns ErrExpiredSession for a well-formed token past its expiry and
// ErrInvalidSession for anything else that does not verify.
func (c *SessionCodec) Parse(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}
	if !token.Valid || claims.IssuedAt == nil || claims.CusKey == "" {
		return nil, ErrInvalidSession
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidSession
	}

	return &Session{
		UserID:    userID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		Binding:   claims.CusKey,
	}, nil
}
