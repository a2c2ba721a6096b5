package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/email"
	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

var (
	ErrMissingCredentials = appErrors.NewValidationError("email and password are required")
	ErrInvalidResetCode   = appErrors.NewValidationError("invalid or expired reset code")
	ErrPasswordMismatch   = appErrors.NewValidationError("passwords do not match")
)

// Result is the outcome of an operation that starts a session.
type Result struct {
	User    *user.User `json:"user"`
	Token   string     `json:"-"`
	Session *Session   `json:"session"`
}

type Service interface {
	Register(ctx context.Context, input user.RegisterInput) (*Result, error)
	Login(ctx context.Context, email, password string) (*Result, error)
	ResolveSession(ctx context.Context, token string) (*Session, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update user.ProfileUpdate) (*Result, error)
	RequestPasswordReset(ctx context.Context, email string) (*user.User, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) (*user.User, error)
}

type service struct {
	userService user.Service
	resets      ResetRepository
	codec       *SessionCodec
	codes       *ResetCodes
	mailer      email.Sender
	logger      *log.Logger
	now         func() time.Time
}

func NewAuthService(userService user.Service, resets ResetRepository, codec *SessionCodec, codes *ResetCodes, mailer email.Sender, logger *log.Logger) Service {
	return &service{
		userService: userService,
		resets:      resets,
		codec:       codec,
		codes:       codes,
		mailer:      mailer,
		logger:      logger.WithComponent(log.ComponentAuth),
		now:         time.Now,
	}
}

func (s *service) Register(ctx context.Context, input user.RegisterInput) (*Result, error) {
	newUser, err := s.userService.Register(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(newUser)
}

// Login reports ErrInvalidCredentials for an unknown email and for a wrong
// password. In the latter case the result still names the user so the
// attempt can be attributed.
func (s *service) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	existingUser, err := s.userService.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			known, lookupErr := s.userService.GetUserByEmail(ctx, email)
			if lookupErr == nil {
				return &Result{User: known}, err
			}
		}
		return nil, err
	}
	return s.issue(existingUser)
}

func (s *service) ResolveSession(ctx context.Context, token string) (*Session, error) {
	session, err := s.codec.Parse(token)
	if err != nil {
		return nil, err
	}

	existingUser, err := s.userService.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	// A rotated hash token revokes every session issued before the rotation.
	if session.Binding != BindingFor(existingUser.ID, existingUser.HashToken) {
		return nil, ErrInvalidSession
	}

	session.Role = existingUser.Role
	return session, nil
}

func (s *service) CurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.userService.GetUserByID(ctx, userID)
}

// UpdateProfile applies the update and issues a fresh session carrying the
// new profile. A password change invalidates every other session.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, update user.ProfileUpdate) (*Result, error) {
	updatedUser, err := s.userService.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	if update.NewPassword != nil {
		s.mailer.QueueEmail(updatedUser.Email, email.PasswordChangedData{UserName: updatedUser.Name})
	}
	return s.issue(updatedUser)
}

// RequestPasswordReset mails a reset code when the email belongs to a user.
// The returned user is nil for unknown emails; callers must not reveal which
// case happened.
func (s *service) RequestPasswordReset(ctx context.Context, emailAddress string) (*user.User, error) {
	existingUser, err := s.userService.GetUserByEmail(ctx, emailAddress)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil, nil
		}
		return nil, err
	}

	pending, err := s.resets.GetReset(ctx, existingUser.ID)
	if err != nil && !errors.Is(err, ErrNoPendingReset) {
		return nil, err
	}
	if pending != nil && s.now().Sub(pending.CreatedAt) < resetResendCooldown && s.now().Before(pending.ExpiresAt) {
		s.logger.InfoContext(ctx, "password reset code recently sent, skipping", log.FieldUserID, existingUser.ID.String())
		return existingUser, nil
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	secret, code, err := s.codes.Generate(existingUser.Email, issuedAt)
	if err != nil {
		return nil, err
	}

	err = s.resets.SaveReset(ctx, PasswordReset{
		UserID:    existingUser.ID,
		Secret:    secret,
		ExpiresAt: issuedAt.Add(resetCodeValidity),
		CreatedAt: issuedAt,
	})
	if err != nil {
		return nil, err
	}

	s.mailer.QueueEmail(existingUser.Email, email.ResetPasswordData{
		UserName:         existingUser.Name,
		Code:             code,
		ExpiresInMinutes: int(resetCodeValidity / time.Minute),
	})
	s.logger.InfoContext(ctx, "password reset code issued", log.FieldUserID, existingUser.ID.String())
	return existingUser, nil
}

// ResetPassword reports ErrInvalidResetCode for an unknown email, a missing
// reset and a wrong or expired code alike.
func (s *service) ResetPassword(ctx context.Context, emailAddress, code, newPassword string) (*user.User, error) {
	if err := user.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	existingUser, err := s.userService.GetUserByEmail(ctx, emailAddress)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidResetCode
		}
		return nil, err
	}

	pending, err := s.resets.GetReset(ctx, existingUser.ID)
	if err != nil {
		if errors.Is(err, ErrNoPendingReset) {
			return existingUser, ErrInvalidResetCode
		}
		return existingUser, err
	}
	if s.now().After(pending.ExpiresAt) {
		return existingUser, ErrInvalidResetCode
	}
	if !s.codes.Verify(pending.Secret, code, pending.CreatedAt) {
		s.recordFailedReset(ctx, existingUser.ID)
		return existingUser, ErrInvalidResetCode
	}

	if err := s.userService.ResetPassword(ctx, existingUser.ID, newPassword); err != nil {
		return existingUser, err
	}
	if err := s.resets.DeleteReset(ctx, existingUser.ID); err != nil {
		s.logger.WarnContext(ctx, "could not delete used reset code", log.FieldUserID, existingUser.ID.String(), log.FieldError, err)
	}

	s.mailer.QueueEmail(existingUser.Email, email.PasswordChangedData{UserName: existingUser.Name})
	return existingUser, nil
}

// recordFailedReset counts a wrong code and discards the pending reset once
// maxResetAttempts is reached.
func (s *service) recordFailedReset(ctx context.Context, userID uuid.UUID) {
	attempts, err := s.resets.RecordFailedAttempt(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "could not record failed reset attempt", log.FieldUserID, userID.String(), log.FieldError, err)
		return
	}
	if attempts < maxResetAttempts {
		return
	}
	if err := s.resets.DeleteReset(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "could not discard reset after failed attempts", log.FieldUserID, userID.String(), log.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, "password reset discarded after failed attempts", log.FieldUserID, userID.String())
}

func (s *service) issue(u *user.User) (*Result, error) {
	token, session, err := s.codec.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrInternal, err)
	}
	return &Result{User: u, Token: token, Session: session}, nil
}
