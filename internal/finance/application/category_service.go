package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

// PredefinedCategories are visible to every user and are kept in sync with
// the database at startup.
var PredefinedCategories = []domain.Category{
	{Name: "Food & Dining", Slug: "food", Color: "#ef4444"},
	{Name: "Transport", Slug: "transport", Color: "#3b82f6"},
	{Name: "Housing & Utilities", Slug: "housing", Color: "#10b981"},
	{Name: "Shopping", Slug: "shopping", Color: "#f59e0b"},
	{Name: "Entertainment", Slug: "entertainment", Color: "#8b5cf6"},
	{Name: "Healthcare", Slug: "healthcare", Color: "#ec4899"},
	{Name: "Education", Slug: "education", Color: "#06b6d4"},
	{Name: "Investment & Savings", Slug: "investment", Color: "#059669"},
	{Name: "Others", Slug: "others", Color: "#6b7280"},
}

type CategoryService struct {
	repo   domain.CategoryRepository
	logger *log.Logger
}

func NewCategoryService(repo domain.CategoryRepository, logger *log.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger.WithComponent(log.ComponentCategory)}
}

func (s *CategoryService) ListCategories(ctx context.Context, userID uuid.UUID, q domain.CategoryListQuery) ([]domain.Category, int, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, userID, q)
}

func (s *CategoryService) GetCategory(ctx context.Context, userID, id uuid.UUID) (*domain.Category, error) {
	return s.repo.FindVisible(ctx, id, userID)
}

// CreateCategory checks name and slug before inserting. The unique indexes
// still decide when two creates race.
func (s *CategoryService) CreateCategory(ctx context.Context, userID uuid.UUID, in domain.CategoryInput) (*domain.Category, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, userID, &in.Name, &in.Slug, nil); err != nil {
		return nil, err
	}

	category := &domain.Category{
		Ownership: domain.OwnedBy(userID),
		Name:      in.Name,
		Slug:      in.Slug,
		Color:     in.Color,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "category created", log.FieldUserID, userID.String(), log.FieldCategoryID, category.ID.String())
	return category, nil
}

// UpdateCategory changes a category the user owns. Predefined and foreign
// categories report not found.
func (s *CategoryService) UpdateCategory(ctx context.Context, userID, id uuid.UUID, patch domain.CategoryPatch) (*domain.Category, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	category, err := s.repo.FindVisible(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !category.Ownership.MutableBy(userID) {
		return nil, financeErrors.ErrCategoryNotFound
	}

	var name, slug *string
	if patch.Name != nil && *patch.Name != category.Name {
		name = patch.Name
	}
	if patch.Slug != nil && *patch.Slug != category.Slug {
		slug = patch.Slug
	}
	if err := s.checkUnique(ctx, userID, name, slug, &category.ID); err != nil {
		return nil, err
	}

	patch.ApplyTo(category)
	if err := s.repo.Update(ctx, category, userID); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory reports false when there was nothing the user could delete.
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.InfoContext(ctx, "category deleted", log.FieldUserID, userID.String(), log.FieldCategoryID, id.String())
	}
	return deleted, nil
}

// CategoryVisible reports whether the user may file expenses under id.
func (s *CategoryService) CategoryVisible(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	return s.repo.ExistsVisible(ctx, id, userID)
}

func (s *CategoryService) SyncPredefined(ctx context.Context) error {
	if err := s.repo.UpsertPredefined(ctx, PredefinedCategories); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "predefined categories synced", "count", len(PredefinedCategories))
	return nil
}

func (s *CategoryService) checkUnique(ctx context.Context, userID uuid.UUID, name, slug *string, exclude *uuid.UUID) error {
	if name != nil {
		taken, err := s.repo.NameTaken(ctx, userID, *name, exclude)
		if err != nil {
			return err
		}
		if taken {
			return financeErrors.ErrCategoryNameTaken
		}
	}
	if slug != nil {
		taken, err := s.repo.SlugTaken(ctx, userID, *slug, exclude)
		if err != nil {
			return err
		}
		if taken {
			return financeErrors.ErrCategorySlugTaken
		}
	}
	return nil
}
