package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	database "github.com/familyspend/ExpenseTracker/internal/db"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
)

const (
	unknownCategoryName  = "unknown"
	unknownCategoryColor = "#6b7280"
)

// StatisticsRepository aggregates in numeric and returns sums as text, so no
// amount passes through a float.
type StatisticsRepository struct {
	db *sql.DB
}

func NewStatisticsRepository(db *sql.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

func (r *StatisticsRepository) Totals(ctx context.Context, userID uuid.UUID, dates domain.DateRange) (domain.MonthTotal, error) {
	where := &whereClause{}
	where.add("user_id = $%d", userID)
	where.addDateRange("date", dates)

	var totals domain.MonthTotal
	query := `SELECT COUNT(*), COALESCE(SUM(amount), 0)::text FROM expenses WHERE ` + where.String()
	if err := r.db.QueryRowContext(ctx, query, where.args...).Scan(&totals.Count, &totals.Amount); err != nil {
		return domain.MonthTotal{}, database.Classify(fmt.Errorf("could not total expenses: %w", err))
	}
	return totals, nil
}

func (r *StatisticsRepository) ByCategory(ctx context.Context, userID uuid.UUID, dates domain.DateRange) ([]domain.CategoryTotal, error) {
	where := &whereClause{}
	where.add("e.user_id = $%d", userID)
	where.addDateRange("e.date", dates)

	query := fmt.Sprintf(`
		SELECT e.category_id, COALESCE(c.name, '%s'), COALESCE(c.color, '%s'), SUM(e.amount)::text, COUNT(*)
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE %s
		GROUP BY e.category_id, c.name, c.color
		ORDER BY SUM(e.amount) DESC, e.category_id
	`, unknownCategoryName, unknownCategoryColor, where)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, database.Classify(fmt.Errorf("could not group expenses by category: %w", err))
	}
	defer rows.Close()

	var totals []domain.CategoryTotal
	for rows.Next() {
		var total domain.CategoryTotal
		if err := rows.Scan(&total.CategoryID, &total.Name, &total.Color, &total.Total, &total.Count); err != nil {
			return nil, database.Classify(fmt.Errorf("could not scan category total: %w", err))
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err)
	}
	return totals, nil
}

func (r *StatisticsRepository) ByMonth(ctx context.Context, userID uuid.UUID, year int) ([]domain.MonthlyTotal, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	query := `
		SELECT EXTRACT(MONTH FROM date AT TIME ZONE 'UTC')::int, SUM(amount)::text, COUNT(*)
		FROM expenses
		WHERE user_id = $1 AND date >= $2 AND date < $3
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := r.db.QueryContext(ctx, query, userID, start, start.AddDate(1, 0, 0))
	if err != nil {
		return nil, database.Classify(fmt.Errorf("could not group expenses by month: %w", err))
	}
	defer rows.Close()

	var totals []domain.MonthlyTotal
	for rows.Next() {
		var total domain.MonthlyTotal
		if err := rows.Scan(&total.Month, &total.Total, &total.Count); err != nil {
			return nil, database.Classify(fmt.Errorf("could not scan monthly total: %w", err))
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err)
	}
	return totals, nil
}
