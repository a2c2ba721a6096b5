package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

func TestStatistics_Summary(t *testing.T) {
	env := newExpenseEnv(t)
	ctx := context.Background()
	env.create(t, env.alice, env.food.ID, "0.10", "gum", "2024-05-01")
	env.create(t, env.alice, env.food.ID, "0.20", "gum", "2024-05-10")
	env.create(t, env.alice, env.food.ID, "100", "old", "2024-04-20")
	env.create(t, env.bob, env.predef.ID, "50", "bob", "2024-05-10")

	summary, err := env.statistics.Summary(ctx, env.alice)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalExpenses)
	assert.Equal(t, "100.30", summary.TotalAmount.String())
	assert.Equal(t, 2, summary.ThisMonth.Count)
	assert.Equal(t, "0.30", summary.ThisMonth.Amount.String())
	// 30 cents over 15 days
	assert.Equal(t, "0.02", summary.AverageDaily.String())
}

func TestStatistics_ByCategory(t *testing.T) {
	env := newExpenseEnv(t)
	ctx := context.Background()
	env.create(t, env.alice, env.food.ID, "10", "a", "2024-05-01")
	env.create(t, env.alice, env.food.ID, "10", "b", "2024-05-02")
	env.create(t, env.alice, env.predef.ID, "10", "c", "2024-05-03")

	totals, err := env.statistics.ByCategory(ctx, env.alice, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Food", totals[0].Name)
	assert.Equal(t, 66.7, totals[0].Percentage)
	assert.Equal(t, 33.3, totals[1].Percentage)
	assert.Equal(t, 2, totals[0].Count)

	from := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	totals, err = env.statistics.ByCategory(ctx, env.alice, domain.DateRange{From: &from})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 100.0, totals[0].Percentage)

	empty, err := env.statistics.ByCategory(ctx, env.bob, domain.DateRange{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	to := from.Add(-time.Hour)
	_, err = env.statistics.ByCategory(ctx, env.alice, domain.DateRange{From: &from, To: &to})
	assert.ErrorIs(t, err, financeErrors.ErrInvalidDateRange)
}

func TestStatistics_Monthly(t *testing.T) {
	env := newExpenseEnv(t)
	ctx := context.Background()
	env.create(t, env.alice, env.food.ID, "10", "a", "2024-01-31")
	env.create(t, env.alice, env.food.ID, "2.5", "b", "2024-05-02")
	env.create(t, env.alice, env.food.ID, "2.5", "c", "2024-05-03")
	env.create(t, env.alice, env.food.ID, "1", "d", "2023-12-31")

	months, err := env.statistics.Monthly(ctx, env.alice, 0)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, 1, months[0].Month)
	assert.Equal(t, "10.00", months[0].Total.String())
	assert.Equal(t, 0, months[1].Count)
	assert.Equal(t, "5.00", months[4].Total.String())
	assert.Equal(t, 2, months[4].Count)
	assert.Equal(t, 12, months[11].Month)

	_, err = env.statistics.Monthly(ctx, env.alice, 1969)
	assert.ErrorIs(t, err, financeErrors.ErrInvalidYear)
	assert.Equal(t, 400, appErrors.HTTPStatus(err))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(5, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Equal(t, 14.3, percentage(1, 7))
}
