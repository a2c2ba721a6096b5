package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

var fixedNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func money(t *testing.T, s string) *Amount {
	t.Helper()
	a, err := ParseAmount(s)
	require.NoError(t, err)
	return a
}

func TestExpenseInput_Build(t *testing.T) {
	userID, categoryID := uuid.New(), uuid.New()

	expense, err := ExpenseInput{
		Amount:      money(t, "12.50"),
		CategoryID:  categoryID.String(),
		Description: "  lunch ",
		Date:        "2024-05-14",
	}.Build(userID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, userID, expense.UserID)
	assert.Equal(t, categoryID, expense.CategoryID)
	assert.Equal(t, int64(1250), expense.Amount.Cents)
	assert.Equal(t, "lunch", expense.Description)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), expense.Date)
}

func TestExpenseInput_Rejections(t *testing.T) {
	categoryID := uuid.New().String()
	tests := []struct {
		name  string
		input ExpenseInput
	}{
		{"future date", ExpenseInput{Amount: money(t, "1"), CategoryID: categoryID, Description: "x", Date: "2024-05-16"}},
		{"zero amount", ExpenseInput{Amount: money(t, "0"), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"negative amount", ExpenseInput{Amount: money(t, "-5"), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"above cap", ExpenseInput{Amount: money(t, "1000000.01"), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"rounds to zero", ExpenseInput{Amount: money(t, "0.004"), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"rounds up to one cent", ExpenseInput{Amount: money(t, "0.005"), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"rounds down to cap", ExpenseInput{Amount: money(t, "1000000.004"), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"missing amount", ExpenseInput{CategoryID: categoryID, Description: "x", Date: "2024-05-14"}},
		{"bad category", ExpenseInput{Amount: money(t, "1"), CategoryID: "nope", Description: "x", Date: "2024-05-14"}},
		{"blank description", ExpenseInput{Amount: money(t, "1"), CategoryID: categoryID, Description: "   ", Date: "2024-05-14"}},
		{"long description", ExpenseInput{Amount: money(t, "1"), CategoryID: categoryID, Description: strings.Repeat("a", 501), Date: "2024-05-14"}},
		{"bad date", ExpenseInput{Amount: money(t, "1"), CategoryID: categoryID, Description: "x", Date: "14/05/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.input.Build(uuid.New(), fixedNow)
			require.Error(t, err)
			assert.Equal(t, 400, appErrors.HTTPStatus(err))
		})
	}
}

func TestExpenseInput_BoundaryAmounts(t *testing.T) {
	categoryID := uuid.New().String()
	for _, amount := range []string{"0.01", "1000000", "1000000.00"} {
		_, err := ExpenseInput{Amount: money(t, amount), CategoryID: categoryID, Description: "x", Date: "2024-05-14"}.Build(uuid.New(), fixedNow)
		assert.NoError(t, err, amount)
	}
}

func TestExpensePatch_RangeUsesExactAmount(t *testing.T) {
	expense := Expense{ID: uuid.New(), Amount: Cents(100), Description: "coffee", Date: fixedNow.Add(-time.Hour)}

	require.Error(t, ExpensePatch{Amount: money(t, "0.009")}.ApplyTo(&expense, fixedNow))
	assert.Equal(t, int64(100), expense.Amount.Cents)

	require.NoError(t, ExpensePatch{Amount: money(t, "0.015")}.ApplyTo(&expense, fixedNow))
	assert.Equal(t, int64(2), expense.Amount.Cents)
}

func TestExpenseInput_CollectsAllErrors(t *testing.T) {
	_, err := ExpenseInput{}.Build(uuid.New(), fixedNow)
	require.Error(t, err)
	assert.Len(t, appErrors.Details(err), 4)
}

func TestExpensePatch_ApplyTo(t *testing.T) {
	original := Expense{ID: uuid.New(), Amount: Cents(100), Description: "coffee", Date: fixedNow.Add(-time.Hour)}

	assert.ErrorIs(t, ExpensePatch{}.ApplyTo(&original, fixedNow), financeErrors.ErrNothingToUpdate)

	description := "tea"
	expense := original
	require.NoError(t, ExpensePatch{Amount: money(t, "2.5"), Description: &description}.ApplyTo(&expense, fixedNow))
	assert.Equal(t, int64(250), expense.Amount.Cents)
	assert.Equal(t, "tea", expense.Description)
	assert.Equal(t, original.Date, expense.Date)

	future := "2030-01-01"
	expense = original
	require.Error(t, ExpensePatch{Description: &description, Date: &future}.ApplyTo(&expense, fixedNow))
	assert.Equal(t, original, expense, "a failed patch leaves the expense unchanged")
}

func TestExpenseListQuery_Validate(t *testing.T) {
	q := DefaultExpenseListQuery()
	require.NoError(t, q.Validate())
	assert.Equal(t, ExpenseSortDate, q.SortBy)
	assert.Equal(t, SortDesc, q.SortOrder)

	q.Search = strings.Repeat("s", 201)
	assert.ErrorIs(t, q.Validate(), financeErrors.ErrSearchTooLong)

	q = DefaultExpenseListQuery()
	from, to := fixedNow, fixedNow.Add(-time.Hour)
	q.DateFrom, q.DateTo = &from, &to
	assert.ErrorIs(t, q.Validate(), financeErrors.ErrInvalidDateRange)

	q = DefaultExpenseListQuery()
	q.SortBy = "name"
	assert.ErrorIs(t, q.Validate(), financeErrors.ErrInvalidSortBy)
}
