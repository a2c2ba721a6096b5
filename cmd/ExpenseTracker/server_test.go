package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/auth"
	"github.com/familyspend/ExpenseTracker/internal/email"
	"github.com/familyspend/ExpenseTracker/internal/finance/application"
	"github.com/familyspend/ExpenseTracker/internal/finance/infrastructure"
	"github.com/familyspend/ExpenseTracker/internal/finance/interfaces"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

type stubHealth map[string]string

func (s stubHealth) Health(context.Context) map[string]string { return s }

type memoryResets struct {
	mu     sync.Mutex
	resets map[uuid.UUID]auth.PasswordReset
}

func (m *memoryResets) SaveReset(_ context.Context, reset auth.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[reset.UserID] = reset
	return nil
}

func (m *memoryResets) GetReset(_ context.Context, userID uuid.UUID) (*auth.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset, ok := m.resets[userID]
	if !ok {
		return nil, auth.ErrNoPendingReset
	}
	return &reset, nil
}

func (m *memoryResets) DeleteReset(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resets, userID)
	return nil
}

func (m *memoryResets) RecordFailedAttempt(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset, ok := m.resets[userID]
	if !ok {
		return 0, auth.ErrNoPendingReset
	}
	reset.Attempts++
	m.resets[userID] = reset
	return reset.Attempts, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memoryAudit) Record(_ context.Context, entry audit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *memoryAudit) List(_ context.Context, _ audit.ListQuery) ([]audit.Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Entry(nil), m.entries...), len(m.entries), nil
}

func newTestServer(t *testing.T, health HealthChecker) *Server {
	t.Helper()
	logger := log.Discard()

	mailer, err := email.NewServiceWithDelivery(func(email.Message) error { return nil }, logger)
	require.NoError(t, err)
	t.Cleanup(mailer.Close)

	userService := user.NewUserService(user.NewMockRepository(), user.NewCredentials(bcrypt.MinCost), logger)
	codec := auth.NewSessionCodec("server-test-secret-with-enough-bytes", auth.DefaultSessionDuration)
	authService := auth.NewAuthService(userService, &memoryResets{resets: map[uuid.UUID]auth.PasswordReset{}}, codec, auth.NewResetCodes(), mailer, logger)
	cookies := auth.CookieConfig{}
	gate := auth.NewGate(authService, cookies, logger)
	sink := &memoryAudit{}

	categoryRepo := infrastructure.NewMockCategoryRepository()
	expenseRepo := infrastructure.NewMockExpenseRepository(categoryRepo)
	categories := application.NewCategoryService(categoryRepo, logger)
	require.NoError(t, categories.SyncPredefined(context.Background()))
	expenses := application.NewExpenseService(expenseRepo, categories, logger)
	statistics := application.NewStatisticsService(&infrastructure.MockStatisticsRepository{Expenses: expenseRepo, Categories: categoryRepo}, logger)

	server := NewServer(
		logger,
		health,
		gate,
		auth.NewHandler(authService, gate, cookies, sink, sink),
		interfaces.NewCategoryHandler(categories, sink),
		interfaces.NewExpenseHandler(expenses, sink),
		interfaces.NewStatisticsHandler(statistics),
	)
	server.RegisterRoutes()
	return server
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func serve(handler http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestServer_UnknownPathIsNotFoundEnvelope(t *testing.T) {
	handler := newTestServer(t, stubHealth{"status": "up"}).Handler()

	for _, path := range []string{"/nope", "/api/nope", "/api/admin/nope"} {
		w := serve(handler, http.MethodGet, path, "")

		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, false, decode(t, w)["success"], path)
	}
}

func TestServer_ReadyAndHealth(t *testing.T) {
	w := serve(newTestServer(t, stubHealth{"status": "up"}).Handler(), http.MethodGet, "/api/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(newTestServer(t, stubHealth{"status": "up"}).Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(newTestServer(t, stubHealth{"status": "down", "error": "connection refused"}).Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestServer_ProtectedRoutesRequireSession(t *testing.T) {
	handler := newTestServer(t, stubHealth{"status": "up"}).Handler()

	for _, path := range []string{"/api/categories", "/api/expenses", "/api/expenses/export", "/api/statistics", "/api/auth/me", "/api/admin/access-logs"} {
		w := serve(handler, http.MethodGet, path, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Authentication required", decode(t, w)["error"], path)
	}
}

func TestServer_RegisterThenUseSession(t *testing.T) {
	handler := newTestServer(t, stubHealth{"status": "up"}).Handler()

	w := serve(handler, http.MethodPost, "/api/auth/register", `{"email":"alice@example.com","password":"s3cretpass","name":"Alice"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	w = serve(handler, http.MethodPost, "/api/categories", `{"name":"Food","slug":"food"}`, session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(handler, http.MethodGet, "/api/categories?includePredefined=false", "", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = serve(handler, http.MethodGet, "/api/admin/access-logs", "", session)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecoverPanics(t *testing.T) {
	handler := recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := serve(handler, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Internal server error", body["error"])
}
