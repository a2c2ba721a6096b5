package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/auth"
	"github.com/familyspend/ExpenseTracker/internal/finance/application"
	"github.com/familyspend/ExpenseTracker/internal/finance/infrastructure"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Record(_ context.Context, entry audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) last(t *testing.T) audit.Entry {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.entries)
	return s.entries[len(s.entries)-1]
}

type handlerEnv struct {
	categoryRepo *infrastructure.MockCategoryRepository
	expenseRepo  *infrastructure.MockExpenseRepository
	categories   *application.CategoryService
	sink         *recordingSink
	router       *http.ServeMux
}

// withUser stands in for the gate: it trusts the X-Test-User header.
func withUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := uuid.Parse(r.Header.Get("X-Test-User")); err == nil {
			r = r.WithContext(auth.WithSession(r.Context(), &auth.Session{UserID: id}))
		}
		next(w, r)
	})
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	categoryRepo := infrastructure.NewMockCategoryRepository()
	expenseRepo := infrastructure.NewMockExpenseRepository(categoryRepo)
	categories := application.NewCategoryService(categoryRepo, log.Discard())
	require.NoError(t, categories.SyncPredefined(context.Background()))
	expenses := application.NewExpenseService(expenseRepo, categories, log.Discard())
	statistics := application.NewStatisticsService(&infrastructure.MockStatisticsRepository{Expenses: expenseRepo, Categories: categoryRepo}, log.Discard())

	env := &handlerEnv{categoryRepo: categoryRepo, expenseRepo: expenseRepo, categories: categories, sink: &recordingSink{}}
	categoryHandler := NewCategoryHandler(categories, env.sink)
	expenseHandler := NewExpenseHandler(expenses, env.sink)
	statisticsHandler := NewStatisticsHandler(statistics)

	router := http.NewServeMux()
	router.Handle("GET /api/categories", withUser(categoryHandler.ListCategories))
	router.Handle("POST /api/categories", withUser(categoryHandler.CreateCategory))
	router.Handle("GET /api/categories/{id}", withUser(categoryHandler.GetCategory))
	router.Handle("PUT /api/categories/{id}", withUser(categoryHandler.UpdateCategory))
	router.Handle("DELETE /api/categories/{id}", withUser(categoryHandler.DeleteCategory))
	router.Handle("GET /api/expenses", withUser(expenseHandler.ListExpenses))
	router.Handle("POST /api/expenses", withUser(expenseHandler.CreateExpense))
	router.Handle("GET /api/expenses/export", withUser(expenseHandler.Export))
	router.Handle("GET /api/expenses/{id}", withUser(expenseHandler.GetExpense))
	router.Handle("PUT /api/expenses/{id}", withUser(expenseHandler.UpdateExpense))
	router.Handle("DELETE /api/expenses/{id}", withUser(expenseHandler.DeleteExpense))
	router.Handle("GET /api/statistics", withUser(statisticsHandler.Summary))
	router.Handle("GET /api/statistics/categories", withUser(statisticsHandler.ByCategory))
	router.Handle("GET /api/statistics/monthly", withUser(statisticsHandler.Monthly))
	env.router = router
	return env
}

func (e *handlerEnv) do(userID uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	if userID != uuid.Nil {
		req.Header.Set("X-Test-User", userID.String())
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func dataObject(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", body["data"])
	return data
}

func (e *handlerEnv) createCategory(t *testing.T, userID uuid.UUID, body string) string {
	t.Helper()
	w := e.do(userID, http.MethodPost, "/api/categories", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return dataObject(t, decodeBody(t, w))["id"].(string)
}

func (e *handlerEnv) createExpense(t *testing.T, userID uuid.UUID, body string) string {
	t.Helper()
	w := e.do(userID, http.MethodPost, "/api/expenses", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return dataObject(t, decodeBody(t, w))["id"].(string)
}
