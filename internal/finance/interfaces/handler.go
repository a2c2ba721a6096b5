package interfaces

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/auth"
	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	"github.com/familyspend/ExpenseTracker/internal/request"
)

// sessionUserID returns the id of the signed in user. Routes are mounted
// behind the gate, so a missing session is a wiring error reported as 401.
func sessionUserID(r *http.Request) (uuid.UUID, error) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok || session == nil {
		return uuid.Nil, appErrors.ErrUnauthenticated
	}
	return session.UserID, nil
}

// pathID parses the {id} path value. A malformed id reports notFound.
func pathID(r *http.Request, notFound error) (uuid.UUID, error) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func sortOrderParam(r *http.Request, fallback domain.SortOrder) domain.SortOrder {
	if value := r.URL.Query().Get("sortOrder"); value != "" {
		return domain.SortOrder(value)
	}
	return fallback
}

func parseCategoryListQuery(r *http.Request) (domain.CategoryListQuery, error) {
	q := domain.DefaultCategoryListQuery()
	query := r.URL.Query()

	page, limit, err := request.PageParams(r, domain.DefaultCategoryLimit, domain.MaxListLimit)
	if err != nil {
		return q, err
	}
	q.Page, q.Limit = page, limit

	if value := query.Get("includePredefined"); value != "" {
		q.IncludePredefined = value == "true"
	}
	if value := query.Get("sortBy"); value != "" {
		q.SortBy = domain.CategorySortField(value)
	}
	q.SortOrder = sortOrderParam(r, q.SortOrder)
	return q, nil
}

func parseExpenseListQuery(r *http.Request) (domain.ExpenseListQuery, error) {
	q := domain.DefaultExpenseListQuery()
	query := r.URL.Query()

	page, limit, err := request.PageParams(r, domain.DefaultExpenseLimit, domain.MaxListLimit)
	if err != nil {
		return q, err
	}
	q.Page, q.Limit = page, limit

	if value := query.Get("sortBy"); value != "" {
		q.SortBy = domain.ExpenseSortField(value)
	}
	q.SortOrder = sortOrderParam(r, q.SortOrder)

	if q.CategoryID, err = request.OptionalUUID(r, "categoryId"); err != nil {
		return q, err
	}
	if q.DateFrom, err = request.OptionalDate(r, "dateFrom"); err != nil {
		return q, err
	}
	if q.DateTo, err = request.OptionalDateEnd(r, "dateTo"); err != nil {
		return q, err
	}
	q.Search = strings.TrimSpace(query.Get("search"))
	return q, nil
}

func parseDateRange(r *http.Request) (domain.DateRange, error) {
	from, err := request.OptionalDate(r, "dateFrom")
	if err != nil {
		return domain.DateRange{}, err
	}
	to, err := request.OptionalDateEnd(r, "dateTo")
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{From: from, To: to}, nil
}
