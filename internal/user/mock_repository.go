package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

// MockRepository keeps users in memory. It is used by service and handler
// tests across packages.
type MockRepository struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*User
	ShouldFail bool
}

// errMockRepository simulates an unreachable database.
var errMockRepository = fmt.Errorf("mock repository failure: %w", appErrors.ErrUnavailable)

func NewMockRepository() *MockRepository {
	return &MockRepository{users: make(map[uuid.UUID]*User)}
}

func (m *MockRepository) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrEmailAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockRepository
	}
	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	found := *user
	return &found, nil
}

func (m *MockRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockRepository
	}
	for _, user := range m.users {
		if user.Email == NormalizeEmail(email) {
			found := *user
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *MockRepository) UpdateProfile(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	stored, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	stored.Email = user.Email
	stored.Name = user.Name
	stored.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MockRepository) UpdatePasswordAndHashToken(_ context.Context, userID uuid.UUID, passwordHash, hashToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockRepository
	}
	stored, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	stored.PasswordHash = passwordHash
	stored.HashToken = hashToken
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// Count returns the number of stored users.
func (m *MockRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}
