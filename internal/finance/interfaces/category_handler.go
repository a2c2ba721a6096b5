package interfaces

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/request"
	"github.com/familyspend/ExpenseTracker/internal/response"
)

type CategoryServiceInterface interface {
	ListCategories(ctx context.Context, userID uuid.UUID, q domain.CategoryListQuery) ([]domain.Category, int, error)
	GetCategory(ctx context.Context, userID, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, userID uuid.UUID, in domain.CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, userID, id uuid.UUID, patch domain.CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

type CategoryHandler struct {
	service CategoryServiceInterface
	audit   audit.Sink
}

func NewCategoryHandler(service CategoryServiceInterface, sink audit.Sink) *CategoryHandler {
	if service == nil || sink == nil {
		panic("category service and audit sink must not be nil")
	}
	return &CategoryHandler{service: service, audit: sink}
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionRead, audit.ResourceCategories).
		WithUser(userID).
		WithResourceID(audit.ResourceIDList)

	q, err := parseCategoryListQuery(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	categories, total, err := h.service.ListCategories(r.Context(), userID, q)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	response.Paginated(w, categories, response.NewPagination(q.Page, q.Limit, total))
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	id, err := pathID(r, financeErrors.ErrCategoryNotFound)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	category, err := h.service.GetCategory(r.Context(), userID, id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, category, "")
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionCreate, audit.ResourceCategories).WithUser(userID)

	var in domain.CategoryInput
	if err := request.DecodeJSON(r, &in); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), userID, in)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.WithResourceID(category.ID.String()).Succeeded(true))
	response.Success(w, http.StatusOK, category, "Category created successfully")
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionUpdate, audit.ResourceCategories).
		WithUser(userID).
		WithResourceID(r.PathValue("id"))

	id, err := pathID(r, financeErrors.ErrCategoryNotFound)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	var patch domain.CategoryPatch
	if err := request.DecodeJSON(r, &patch); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), userID, id, patch)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	response.Success(w, http.StatusOK, category, "Category updated successfully")
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionDelete, audit.ResourceCategories).
		WithUser(userID).
		WithResourceID(r.PathValue("id"))

	id, err := pathID(r, financeErrors.ErrCategoryNotFound)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	deleted, err := h.service.DeleteCategory(r.Context(), userID, id)
	if err == nil && !deleted {
		err = financeErrors.ErrCategoryNotFound
	}
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	response.Success(w, http.StatusOK, nil, "Category deleted successfully")
}
