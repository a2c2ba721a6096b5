package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MonthTotal struct {
	Count  int   `json:"count"`
	Amount Money `json:"amount"`
}

type Summary struct {
	TotalExpenses int        `json:"totalExpenses"`
	TotalAmount   Money      `json:"totalAmount"`
	ThisMonth     MonthTotal `json:"thisMonth"`
	AverageDaily  Money      `json:"averageDaily"`
}

// CategoryTotal is the spending of one category. Expenses whose category was
// deleted are grouped under their old category id with the name "unknown".
type CategoryTotal struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Total      Money     `json:"total"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
}

type MonthlyTotal struct {
	Month int   `json:"month"`
	Total Money `json:"total"`
	Count int   `json:"count"`
}

// DateRange bounds a query on expense date. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

type StatisticsRepository interface {
	Totals(ctx context.Context, userID uuid.UUID, r DateRange) (MonthTotal, error)
	ByCategory(ctx context.Context, userID uuid.UUID, r DateRange) ([]CategoryTotal, error)
	// ByMonth returns only the months of year that have expenses.
	ByMonth(ctx context.Context, userID uuid.UUID, year int) ([]MonthlyTotal, error)
}
