package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/email"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

type mockResetRepository struct {
	mu         sync.Mutex
	resets     map[uuid.UUID]PasswordReset
	now        func() time.Time
	shouldFail bool
}

func newMockResetRepository() *mockResetRepository {
	return &mockResetRepository{resets: make(map[uuid.UUID]PasswordReset), now: time.Now}
}

func (m *mockResetRepository) SaveReset(_ context.Context, reset PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return errors.New("reset store failure")
	}
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = m.now()
	}
	reset.Attempts = 0
	m.resets[reset.UserID] = reset
	return nil
}

func (m *mockResetRepository) GetReset(_ context.Context, userID uuid.UUID) (*PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, errors.New("reset store failure")
	}
	reset, ok := m.resets[userID]
	if !ok {
		return nil, ErrNoPendingReset
	}
	return &reset, nil
}

func (m *mockResetRepository) DeleteReset(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resets, userID)
	return nil
}

func (m *mockResetRepository) RecordFailedAttempt(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset, ok := m.resets[userID]
	if !ok {
		return 0, ErrNoPendingReset
	}
	reset.Attempts++
	m.resets[userID] = reset
	return reset.Attempts, nil
}

type sentEmail struct {
	to   string
	data email.Data
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *mockMailer) QueueEmail(to string, data email.Data) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{to: to, data: data})
}

func (m *mockMailer) last() (sentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentEmail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type mockSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *mockSink) Record(_ context.Context, entry audit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockSink) last() audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

type testEnv struct {
	users   *user.MockRepository
	resets  *mockResetRepository
	mailer  *mockMailer
	codec   *SessionCodec
	codes   *ResetCodes
	service *service
}

func newTestEnv() *testEnv {
	users := user.NewMockRepository()
	userService := user.NewUserService(users, user.NewCredentials(bcrypt.MinCost), log.Discard())
	env := &testEnv{
		users:  users,
		resets: newMockResetRepository(),
		mailer: &mockMailer{},
		codec:  NewSessionCodec(testSecret, DefaultSessionDuration),
		codes:  NewResetCodes(),
	}
	env.service = NewAuthService(userService, env.resets, env.codec, env.codes, env.mailer, log.Discard()).(*service)
	return env
}
