package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	database "github.com/familyspend/ExpenseTracker/internal/db"
	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

const expenseColumns = `id, user_id, category_id, amount::text, description, date, created_at, updated_at`

var expenseSortColumns = map[domain.ExpenseSortField]string{
	domain.ExpenseSortDate:      "date",
	domain.ExpenseSortAmount:    "amount",
	domain.ExpenseSortCreatedAt: "created_at",
}

type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func scanExpense(row rowScanner) (*domain.Expense, error) {
	var expense domain.Expense
	err := row.Scan(&expense.ID, &expense.UserID, &expense.CategoryID, &expense.Amount,
		&expense.Description, &expense.Date, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return nil, err
	}
	expense.Date = expense.Date.UTC()
	return &expense, nil
}

func expenseFilter(userID uuid.UUID, q domain.ExpenseListQuery) *whereClause {
	where := &whereClause{}
	where.add("user_id = $%d", userID)
	if q.CategoryID != nil {
		where.add("category_id = $%d", *q.CategoryID)
	}
	where.addDateRange("date", domain.DateRange{From: q.DateFrom, To: q.DateTo})
	if q.Search != "" {
		where.add(`description ILIKE $%d ESCAPE '\'`, containsPattern(q.Search))
	}
	return where
}

func (r *ExpenseRepository) List(ctx context.Context, userID uuid.UUID, q domain.ExpenseListQuery) ([]domain.Expense, int, error) {
	where := expenseFilter(userID, q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, database.Classify(fmt.Errorf("could not count expenses: %w", err))
	}

	column, ok := expenseSortColumns[q.SortBy]
	if !ok {
		return nil, 0, financeErrors.ErrInvalidSortBy
	}
	args := append(where.args, q.Limit, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE %s ORDER BY %s %s, created_at DESC, id LIMIT $%d OFFSET $%d`,
		expenseColumns, where, column, q.SortOrder.SQL(), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, database.Classify(fmt.Errorf("could not list expenses: %w", err))
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, q.Limit)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, 0, database.Classify(fmt.Errorf("could not scan expense: %w", err))
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.Classify(err)
	}
	return expenses, total, nil
}

func (r *ExpenseRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND user_id = $2`
	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrExpenseNotFound
		}
		return nil, database.Classify(fmt.Errorf("could not find expense: %w", err))
	}
	return expense, nil
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (user_id, category_id, amount, description, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, expense.UserID, expense.CategoryID, expense.Amount, expense.Description, expense.Date).
		Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return database.Classify(fmt.Errorf("could not create expense: %w", err))
	}
	return nil
}

func (r *ExpenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET category_id = $1, amount = $2, description = $3, date = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, expense.CategoryID, expense.Amount, expense.Description, expense.Date, expense.ID, expense.UserID).
		Scan(&expense.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return financeErrors.ErrExpenseNotFound
		}
		return database.Classify(fmt.Errorf("could not update expense: %w", err))
	}
	return nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, database.Classify(fmt.Errorf("could not delete expense: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, database.Classify(err)
	}
	return affected > 0, nil
}

func (r *ExpenseRepository) Export(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ExportRow, error) {
	query := `
		SELECT e.date, e.amount::text, c.name, e.description, e.created_at
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = $1
		ORDER BY e.date DESC, e.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, database.Classify(fmt.Errorf("could not export expenses: %w", err))
	}
	defer rows.Close()

	var exported []domain.ExportRow
	for rows.Next() {
		var (
			row          domain.ExportRow
			categoryName sql.NullString
		)
		if err := rows.Scan(&row.Date, &row.Amount, &categoryName, &row.Description, &row.CreatedAt); err != nil {
			return nil, database.Classify(fmt.Errorf("could not scan export row: %w", err))
		}
		if categoryName.Valid {
			row.CategoryName = &categoryName.String
		}
		exported = append(exported, row)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err)
	}
	return exported, nil
}

// Ping reports any failure to reach the database as unavailable.
func (r *ExpenseRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrUnavailable, err)
	}
	return nil
}
