package interfaces

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/finance/application"
)

func TestCategoryHandler_RequiresSession(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(uuid.Nil, http.MethodGet, "/api/categories", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Authentication required", body["error"])
}

func TestCategoryHandler_CreateAndGet(t *testing.T) {
	env := newHandlerEnv(t)
	alice := uuid.New()

	id := env.createCategory(t, alice, `{"name":"Food","slug":"food","color":"#ff0000"}`)

	created := env.sink.last(t)
	assert.Equal(t, audit.ActionCreate, created.Action)
	assert.Equal(t, audit.ResourceCategories, created.Resource)
	assert.Equal(t, id, created.ResourceID)
	assert.True(t, created.Success)
	require.NotNil(t, created.UserID)
	assert.Equal(t, alice, *created.UserID)

	w := env.do(alice, http.MethodGet, "/api/categories/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, decodeBody(t, w))
	assert.Equal(t, "Food", data["name"])
	assert.Equal(t, false, data["isPredefined"])
	assert.Equal(t, alice.String(), data["userId"])
}

func TestCategoryHandler_CreateRejections(t *testing.T) {
	env := newHandlerEnv(t)
	alice := uuid.New()
	env.createCategory(t, alice, `{"name":"Food","slug":"food"}`)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"duplicate slug", `{"name":"Other","slug":"food"}`, "Category slug already exists"},
		{"duplicate name", `{"name":"Food","slug":"food-2"}`, "Category name already exists"},
		{"invalid fields", `{"name":"","slug":"Not Valid","color":"red"}`, "Validation failed"},
		{"malformed body", `{"name":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(alice, http.MethodPost, "/api/categories", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.message, body["error"])

			entry := env.sink.last(t)
			assert.False(t, entry.Success)
			assert.Equal(t, audit.ResourceIDUnknown, entry.ResourceID)
		})
	}
}

func TestCategoryHandler_OtherUsersCategoryIsNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	alice, bob := uuid.New(), uuid.New()
	id := env.createCategory(t, alice, `{"name":"Food","slug":"food"}`)

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, `{"name":"Stolen"}`},
		{http.MethodDelete, ""},
	} {
		w := env.do(bob, tc.method, "/api/categories/"+id, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method)
	}

	stored, ok := env.categoryRepo.Get(uuid.MustParse(id))
	require.True(t, ok)
	assert.Equal(t, "Food", stored.Name)
}

func TestCategoryHandler_MalformedIDIsNotFound(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(uuid.New(), http.MethodDelete, "/api/categories/not-a-uuid", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	entry := env.sink.last(t)
	assert.Equal(t, audit.ActionDelete, entry.Action)
	assert.Equal(t, "not-a-uuid", entry.ResourceID)
	assert.False(t, entry.Success)
}

func TestCategoryHandler_PredefinedIsImmutable(t *testing.T) {
	env := newHandlerEnv(t)
	alice := uuid.New()

	w := env.do(alice, http.MethodGet, "/api/categories?includePredefined=true&limit=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, items, len(application.PredefinedCategories))
	predefined := items[0].(map[string]interface{})
	assert.Equal(t, true, predefined["isPredefined"])
	assert.Nil(t, predefined["userId"])
	id := predefined["id"].(string)

	w = env.do(alice, http.MethodPut, "/api/categories/"+id, `{"name":"Mine"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(alice, http.MethodDelete, "/api/categories/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, ok := env.categoryRepo.Get(uuid.MustParse(id))
	require.True(t, ok)
	assert.Equal(t, predefined["name"], stored.Name)
}

func TestCategoryHandler_UpdateAndDelete(t *testing.T) {
	env := newHandlerEnv(t)
	alice := uuid.New()
	id := env.createCategory(t, alice, `{"name":"Food","slug":"food"}`)

	w := env.do(alice, http.MethodPut, "/api/categories/"+id, `{"color":"#00ff00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataObject(t, decodeBody(t, w))
	assert.Equal(t, "#00ff00", data["color"])
	assert.Equal(t, "food", data["slug"])

	updated := env.sink.last(t)
	assert.Equal(t, audit.ActionUpdate, updated.Action)
	assert.Equal(t, id, updated.ResourceID)
	assert.True(t, updated.Success)

	w = env.do(alice, http.MethodPut, "/api/categories/"+id, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(alice, http.MethodDelete, "/api/categories/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.sink.last(t).Success)

	w = env.do(alice, http.MethodDelete, "/api/categories/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.sink.last(t).Success)
}

func TestCategoryHandler_ListPaginationAndQuery(t *testing.T) {
	env := newHandlerEnv(t)
	alice := uuid.New()
	env.createCategory(t, alice, `{"name":"Alpha","slug":"alpha"}`)
	env.createCategory(t, alice, `{"name":"Beta","slug":"beta"}`)
	env.createCategory(t, alice, `{"name":"Gamma","slug":"gamma"}`)

	w := env.do(alice, http.MethodGet, "/api/categories?includePredefined=false&limit=2&page=2&sortOrder=desc", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	items := body["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].(map[string]interface{})["name"])

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(2), pagination["totalPages"])
	assert.Equal(t, false, pagination["hasNext"])
	assert.Equal(t, true, pagination["hasPrev"])

	listed := env.sink.last(t)
	assert.Equal(t, audit.ActionRead, listed.Action)
	assert.Equal(t, audit.ResourceIDList, listed.ResourceID)

	for _, query := range []string{"limit=101", "page=0", "page=92233720368547758&limit=100", "sortBy=color", "sortOrder=up"} {
		w = env.do(alice, http.MethodGet, "/api/categories?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestCategoryHandler_Unavailable(t *testing.T) {
	env := newHandlerEnv(t)
	env.categoryRepo.ShouldFail = true

	w := env.do(uuid.New(), http.MethodGet, "/api/categories", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "data")
}
