package interfaces

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	"github.com/familyspend/ExpenseTracker/internal/finance/application"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/request"
	"github.com/familyspend/ExpenseTracker/internal/response"
)

const exportFormatCSV = "csv"

type ExpenseServiceInterface interface {
	ListExpenses(ctx context.Context, userID uuid.UUID, q domain.ExpenseListQuery) ([]domain.Expense, int, error)
	GetExpense(ctx context.Context, userID, id uuid.UUID) (*domain.Expense, error)
	CreateExpense(ctx context.Context, userID uuid.UUID, in domain.ExpenseInput) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, userID, id uuid.UUID, patch domain.ExpensePatch) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, userID, id uuid.UUID) (bool, error)
	Export(ctx context.Context, userID uuid.UUID) ([]domain.ExportRow, error)
}

type ExpenseHandler struct {
	service ExpenseServiceInterface
	audit   audit.Sink
	now     func() time.Time
}

func NewExpenseHandler(service ExpenseServiceInterface, sink audit.Sink) *ExpenseHandler {
	if service == nil || sink == nil {
		panic("expense service and audit sink must not be nil")
	}
	return &ExpenseHandler{service: service, audit: sink, now: time.Now}
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionRead, audit.ResourceExpenses).
		WithUser(userID).
		WithResourceID(audit.ResourceIDList)

	q, err := parseExpenseListQuery(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	expenses, total, err := h.service.ListExpenses(r.Context(), userID, q)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	response.Paginated(w, expenses, response.NewPagination(q.Page, q.Limit, total))
}

func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	id, err := pathID(r, financeErrors.ErrExpenseNotFound)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	expense, err := h.service.GetExpense(r.Context(), userID, id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, expense, "")
}

func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionCreate, audit.ResourceExpenses).WithUser(userID)

	var in domain.ExpenseInput
	if err := request.DecodeJSON(r, &in); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	expense, err := h.service.CreateExpense(r.Context(), userID, in)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.WithResourceID(expense.ID.String()).Succeeded(true))
	response.Success(w, http.StatusOK, expense, "Expense created successfully")
}

func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionUpdate, audit.ResourceExpenses).
		WithUser(userID).
		WithResourceID(r.PathValue("id"))

	id, err := pathID(r, financeErrors.ErrExpenseNotFound)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	var patch domain.ExpensePatch
	if err := request.DecodeJSON(r, &patch); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	expense, err := h.service.UpdateExpense(r.Context(), userID, id, patch)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	response.Success(w, http.StatusOK, expense, "Expense updated successfully")
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionDelete, audit.ResourceExpenses).
		WithUser(userID).
		WithResourceID(r.PathValue("id"))

	id, err := pathID(r, financeErrors.ErrExpenseNotFound)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	deleted, err := h.service.DeleteExpense(r.Context(), userID, id)
	if err == nil && !deleted {
		err = financeErrors.ErrExpenseNotFound
	}
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	response.Success(w, http.StatusOK, nil, "Expense deleted successfully")
}

// Export streams the user's expenses as a CSV attachment. Errors before the
// first byte is written are reported as a JSON envelope.
func (h *ExpenseHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	entry := audit.FromRequest(r, audit.ActionExport, audit.ResourceExpenses).
		WithUser(userID).
		WithResourceID(audit.ResourceIDList)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = exportFormatCSV
	}
	if format != exportFormatCSV {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, financeErrors.ErrUnsupportedExportFormat)
		return
	}

	rows, err := h.service.Export(r.Context(), userID)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	filename := fmt.Sprintf("expenses-%s.csv", h.now().UTC().Format(request.DateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)

	err = application.WriteCSV(w, rows)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "export interrupted",
			log.FieldUserID, userID.String(),
			log.FieldError, err)
	}
	h.audit.Record(r.Context(), entry.Succeeded(err == nil))
}
