package interfaces

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/response"
)

type StatisticsServiceInterface interface {
	Summary(ctx context.Context, userID uuid.UUID) (*domain.Summary, error)
	ByCategory(ctx context.Context, userID uuid.UUID, dates domain.DateRange) ([]domain.CategoryTotal, error)
	Monthly(ctx context.Context, userID uuid.UUID, year int) ([]domain.MonthlyTotal, error)
}

type StatisticsHandler struct {
	service StatisticsServiceInterface
}

func NewStatisticsHandler(service StatisticsServiceInterface) *StatisticsHandler {
	if service == nil {
		panic("statistics service must not be nil")
	}
	return &StatisticsHandler{service: service}
}

func (h *StatisticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, summary, "")
}

func (h *StatisticsHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	dates, err := parseDateRange(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	totals, err := h.service.ByCategory(r.Context(), userID, dates)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, totals, "")
}

func (h *StatisticsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUserID(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var year int
	if value := r.URL.Query().Get("year"); value != "" {
		year, err = strconv.Atoi(value)
		if err != nil || year == 0 {
			response.FromError(w, r, financeErrors.ErrInvalidYear)
			return
		}
	}
	months, err := h.service.Monthly(r.Context(), userID, year)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, months, "")
}
