package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ProfileUpdate carries the fields a user may change about themselves. Nil
// fields are left untouched; a new password requires the current one.
type ProfileUpdate struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     *string `json:"newPassword"`
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	CreateWithRole(ctx context.Context, input RegisterInput, role string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error)
	ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error
}

type service struct {
	repo        Repository
	credentials *Credentials
	logger      *log.Logger
}

func NewUserService(repo Repository, credentials *Credentials, logger *log.Logger) Service {
	return &service{
		repo:        repo,
		credentials: credentials,
		logger:      logger.WithComponent(log.ComponentUser),
	}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	return s.CreateWithRole(ctx, input, RoleUser)
}

func (s *service) CreateWithRole(ctx context.Context, input RegisterInput, role string) (*User, error) {
	email := NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	var errs appErrors.ValidationErrors
	if err := validateEmailAddress(email); err != nil {
		errs.Add(err)
	}
	if err := validateName(name); err != nil {
		errs.Add(err)
	}
	if err := ValidatePassword(input.Password); err != nil {
		if appErrors.IsValidationErrors(err) {
			var policy *appErrors.ValidationErrors
			errors.As(err, &policy)
			errs.Errors = append(errs.Errors, policy.Errors...)
		} else {
			errs.Add(err)
		}
	}
	if err := validateRole(role); err != nil {
		errs.Add(err)
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	passwordHash, err := s.credentials.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	hashToken, err := generateHashToken()
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		HashToken:    hashToken,
	}

	// The unique index on lower(email) settles concurrent registrations.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, user.ID.String())
	return user, nil
}

// Authenticate reports ErrInvalidCredentials for unknown emails and wrong
// passwords alike.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	existingUser, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.credentials.Verify(password, existingUser.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return existingUser, nil
}

func (s *service) GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error) {
	if update.Name == nil && update.Email == nil && update.NewPassword == nil {
		return nil, ErrNothingToUpdate
	}

	existingUser, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var errs appErrors.ValidationErrors
	profileChanged := false

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validateName(name); err != nil {
			errs.Add(err)
		} else if name != existingUser.Name {
			existingUser.Name = name
			profileChanged = true
		}
	}

	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if err := validateEmailAddress(email); err != nil {
			errs.Add(err)
		} else if email != existingUser.Email {
			exists, err := s.repo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrEmailAlreadyExists
			}
			existingUser.Email = email
			profileChanged = true
		}
	}

	var newPassword string
	if update.NewPassword != nil {
		if update.CurrentPassword == nil || !s.credentials.Verify(*update.CurrentPassword, existingUser.PasswordHash) {
			errs.Add(ErrWrongPassword)
		} else if err := ValidatePassword(*update.NewPassword); err != nil {
			errs.Add(err)
		} else {
			newPassword = *update.NewPassword
		}
	}

	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	if profileChanged {
		if err := s.repo.UpdateProfile(ctx, existingUser); err != nil {
			return nil, err
		}
	}

	if newPassword != "" {
		if err := s.changePassword(ctx, existingUser, newPassword); err != nil {
			return nil, err
		}
	}

	return existingUser, nil
}

func (s *service) ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	existingUser, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.changePassword(ctx, existingUser, newPassword)
}

// changePassword stores the new hash and rotates the hash token, which
// revokes every session issued before the change.
func (s *service) changePassword(ctx context.Context, user *User, newPassword string) error {
	passwordHash, err := s.credentials.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	hashToken, err := generateHashToken()
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordAndHashToken(ctx, user.ID, passwordHash, hashToken); err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	user.HashToken = hashToken
	s.logger.InfoContext(ctx, "password changed", log.FieldUserID, user.ID.String())
	return nil
}
