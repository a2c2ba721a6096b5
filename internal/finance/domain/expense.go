package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/request"
)

const (
	maxDescriptionLen = 500
	maxSearchLen      = 200
)

type Expense struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	CategoryID  uuid.UUID `json:"categoryId"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ExpenseInput is the body of a create request. Dates are RFC3339 or
// YYYY-MM-DD.
type ExpenseInput struct {
	Amount      *Amount `json:"amount"`
	CategoryID  string  `json:"categoryId"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// Build validates the input and returns the expense it describes. The
// category reference is only checked for shape here.
func (in ExpenseInput) Build(userID uuid.UUID, now time.Time) (*Expense, error) {
	var errs appErrors.ValidationErrors
	expense := &Expense{UserID: userID}

	if in.Amount == nil {
		errs.Add(appErrors.NewValidationError("amount is required"))
	} else if err := validateAmount(*in.Amount); err != nil {
		errs.Add(err)
	} else {
		expense.Amount = in.Amount.Money()
	}

	categoryID, err := parseCategoryID(in.CategoryID)
	if err != nil {
		errs.Add(err)
	}
	expense.CategoryID = categoryID

	description := strings.TrimSpace(in.Description)
	if err := validateDescription(description); err != nil {
		errs.Add(err)
	}
	expense.Description = description

	date, err := parseExpenseDate(in.Date, now)
	if err != nil {
		errs.Add(err)
	}
	expense.Date = date

	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}
	return expense, nil
}

// ExpensePatch changes only the fields that are set.
type ExpensePatch struct {
	Amount      *Amount `json:"amount"`
	CategoryID  *string `json:"categoryId"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func (p ExpensePatch) IsEmpty() bool {
	return p.Amount == nil && p.CategoryID == nil && p.Description == nil && p.Date == nil
}

// ApplyTo validates the set fields and copies them onto e. e is left
// untouched when validation fails.
func (p ExpensePatch) ApplyTo(e *Expense, now time.Time) error {
	if p.IsEmpty() {
		return financeErrors.ErrNothingToUpdate
	}
	var errs appErrors.ValidationErrors
	updated := *e

	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			errs.Add(err)
		}
		updated.Amount = p.Amount.Money()
	}
	if p.CategoryID != nil {
		categoryID, err := parseCategoryID(*p.CategoryID)
		if err != nil {
			errs.Add(err)
		}
		updated.CategoryID = categoryID
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		if err := validateDescription(description); err != nil {
			errs.Add(err)
		}
		updated.Description = description
	}
	if p.Date != nil {
		date, err := parseExpenseDate(*p.Date, now)
		if err != nil {
			errs.Add(err)
		}
		updated.Date = date
	}

	if err := errs.ErrOrNil(); err != nil {
		return err
	}
	*e = updated
	return nil
}

func (p ExpensePatch) ChangesCategory() bool {
	return p.CategoryID != nil
}

func validateAmount(amount Amount) error {
	if !amount.Within(MinExpenseAmount, MaxExpenseAmount) {
		return appErrors.NewValidationErrorf("amount must be between %s and %s", MinExpenseAmount, MaxExpenseAmount)
	}
	return nil
}

func parseCategoryID(value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, appErrors.NewValidationError("categoryId is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, appErrors.NewValidationError("categoryId must be a UUID")
	}
	return id, nil
}

func validateDescription(description string) error {
	if description == "" {
		return appErrors.NewValidationError("description is required")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return appErrors.NewValidationErrorf("description must be at most %d characters", maxDescriptionLen)
	}
	return nil
}

func parseExpenseDate(value string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, appErrors.NewValidationError("date is required")
	}
	date, err := request.ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if date.After(now) {
		return time.Time{}, appErrors.NewValidationError("date must not be in the future")
	}
	return date, nil
}

type ExpenseSortField string

const (
	ExpenseSortDate      ExpenseSortField = "date"
	ExpenseSortAmount    ExpenseSortField = "amount"
	ExpenseSortCreatedAt ExpenseSortField = "createdAt"
)

const DefaultExpenseLimit = 20

type ExpenseListQuery struct {
	Page       int
	Limit      int
	SortBy     ExpenseSortField
	SortOrder  SortOrder
	CategoryID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
}

func DefaultExpenseListQuery() ExpenseListQuery {
	return ExpenseListQuery{
		Page:      1,
		Limit:     DefaultExpenseLimit,
		SortBy:    ExpenseSortDate,
		SortOrder: SortDesc,
	}
}

func (q ExpenseListQuery) Validate() error {
	if err := validatePage(q.Page, q.Limit); err != nil {
		return err
	}
	switch q.SortBy {
	case ExpenseSortDate, ExpenseSortAmount, ExpenseSortCreatedAt:
	default:
		return financeErrors.ErrInvalidSortBy
	}
	if err := q.SortOrder.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(q.Search) > maxSearchLen {
		return financeErrors.ErrSearchTooLong
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return financeErrors.ErrInvalidDateRange
	}
	return nil
}

func (q ExpenseListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ExportRow is one expense joined with its category name. CategoryName is
// nil when the category no longer exists.
type ExportRow struct {
	Date         time.Time
	Amount       Money
	CategoryName *string
	Description  string
	CreatedAt    time.Time
}

type ExpenseRepository interface {
	List(ctx context.Context, userID uuid.UUID, q ExpenseListQuery) ([]Expense, int, error)
	FindByID(ctx context.Context, id, userID uuid.UUID) (*Expense, error)
	Create(ctx context.Context, expense *Expense) error
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	// Export returns at most limit rows, newest first.
	Export(ctx context.Context, userID uuid.UUID, limit int) ([]ExportRow, error)
	Ping(ctx context.Context) error
}
