package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

// MaxExportRows caps a single CSV export.
const MaxExportRows = 10000

type CategoryServiceInterface interface {
	CategoryVisible(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

type ExpenseService struct {
	repo            domain.ExpenseRepository
	categoryService CategoryServiceInterface
	logger          *log.Logger
	now             func() time.Time
}

func NewExpenseService(repo domain.ExpenseRepository, categoryService CategoryServiceInterface, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		repo:            repo,
		categoryService: categoryService,
		logger:          logger.WithComponent(log.ComponentExpense),
		now:             time.Now,
	}
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID uuid.UUID, q domain.ExpenseListQuery) ([]domain.Expense, int, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, userID, q)
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID, id uuid.UUID) (*domain.Expense, error) {
	return s.repo.FindByID(ctx, id, userID)
}

func (s *ExpenseService) CreateExpense(ctx context.Context, userID uuid.UUID, in domain.ExpenseInput) (*domain.Expense, error) {
	expense, err := in.Build(userID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, userID, expense.CategoryID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "expense created", log.FieldUserID, userID.String(), log.FieldExpenseID, expense.ID.String())
	return expense, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, userID, id uuid.UUID, patch domain.ExpensePatch) (*domain.Expense, error) {
	expense, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := patch.ApplyTo(expense, s.now()); err != nil {
		return nil, err
	}
	if patch.ChangesCategory() {
		if err := s.checkCategory(ctx, userID, expense.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// DeleteExpense reports false when the user has no such expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.InfoContext(ctx, "expense deleted", log.FieldUserID, userID.String(), log.FieldExpenseID, id.String())
	}
	return deleted, nil
}

// Export returns the user's expenses for download, newest first. The
// database is pinged first so an outage is reported as such rather than as
// an empty file.
func (s *ExpenseService) Export(ctx context.Context, userID uuid.UUID) ([]domain.ExportRow, error) {
	if err := s.repo.Ping(ctx); err != nil {
		return nil, err
	}
	rows, err := s.repo.Export(ctx, userID, MaxExportRows)
	if err != nil {
		return nil, err
	}
	if len(rows) == MaxExportRows {
		s.logger.WarnContext(ctx, "export truncated", log.FieldUserID, userID.String(), "rows", len(rows))
	}
	return rows, nil
}

func (s *ExpenseService) checkCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	visible, err := s.categoryService.CategoryVisible(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !visible {
		return financeErrors.ErrInvalidCategory
	}
	return nil
}
