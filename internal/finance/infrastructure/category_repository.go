package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	database "github.com/familyspend/ExpenseTracker/internal/db"
	"github.com/familyspend/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

const (
	categoryNameConstraint = "categories_user_name_key"
	categoryColumns        = `id, user_id, name, slug, color, created_at, updated_at`
	visibleToUser          = `(user_id = $1 OR user_id IS NULL)`
)

var categorySortColumns = map[domain.CategorySortField]string{
	domain.CategorySortName:      "name",
	domain.CategorySortCreatedAt: "created_at",
}

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var (
		category domain.Category
		owner    uuid.NullUUID
	)
	if err := row.Scan(&category.ID, &owner, &category.Name, &category.Slug, &category.Color, &category.CreatedAt, &category.UpdatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		category.Ownership = domain.OwnedBy(owner.UUID)
	} else {
		category.Ownership = domain.System()
	}
	return &category, nil
}

// categoryConflict maps a unique violation to the matching conflict error.
// Every unique index on categories other than the name one covers the slug.
func categoryConflict(err error) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return nil
	}
	if constraint == categoryNameConstraint {
		return financeErrors.ErrCategoryNameTaken
	}
	return financeErrors.ErrCategorySlugTaken
}

func (r *CategoryRepository) List(ctx context.Context, userID uuid.UUID, q domain.CategoryListQuery) ([]domain.Category, int, error) {
	filter := `user_id = $1`
	if q.IncludePredefined {
		filter = visibleToUser
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE `+filter, userID).Scan(&total); err != nil {
		return nil, 0, database.Classify(fmt.Errorf("could not count categories: %w", err))
	}

	column, ok := categorySortColumns[q.SortBy]
	if !ok {
		return nil, 0, financeErrors.ErrInvalidSortBy
	}
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE %s ORDER BY %s %s, id LIMIT $2 OFFSET $3`,
		categoryColumns, filter, column, q.SortOrder.SQL())

	rows, err := r.db.QueryContext(ctx, query, userID, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, database.Classify(fmt.Errorf("could not list categories: %w", err))
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, q.Limit)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, 0, database.Classify(fmt.Errorf("could not scan category: %w", err))
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.Classify(err)
	}
	return categories, total, nil
}

func (r *CategoryRepository) FindVisible(ctx context.Context, id, userID uuid.UUID) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $2 AND ` + visibleToUser
	category, err := scanCategory(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrCategoryNotFound
		}
		return nil, database.Classify(fmt.Errorf("could not find category: %w", err))
	}
	return category, nil
}

func (r *CategoryRepository) ExistsVisible(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $2 AND ` + visibleToUser + `)`
	if err := r.db.QueryRowContext(ctx, query, userID, id).Scan(&exists); err != nil {
		return false, database.Classify(err)
	}
	return exists, nil
}

func (r *CategoryRepository) NameTaken(ctx context.Context, userID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	return r.taken(ctx, "name", userID, name, exclude)
}

func (r *CategoryRepository) SlugTaken(ctx context.Context, userID uuid.UUID, slug string, exclude *uuid.UUID) (bool, error) {
	return r.taken(ctx, "slug", userID, slug, exclude)
}

func (r *CategoryRepository) taken(ctx context.Context, column string, userID uuid.UUID, value string, exclude *uuid.UUID) (bool, error) {
	var excluded uuid.NullUUID
	if exclude != nil {
		excluded = uuid.NullUUID{UUID: *exclude, Valid: true}
	}
	query := fmt.Sprintf(`SELECT EXISTS(
		SELECT 1 FROM categories WHERE user_id = $1 AND %s = $2 AND ($3::uuid IS NULL OR id <> $3::uuid)
	)`, column)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, value, excluded).Scan(&exists); err != nil {
		return false, database.Classify(err)
	}
	return exists, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	owner, ok := category.Ownership.Owner()
	if !ok {
		return errors.New("predefined categories are created by UpsertPredefined")
	}
	query := `
		INSERT INTO categories (user_id, name, slug, color, is_predefined, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, owner, category.Name, category.Slug, category.Color).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if conflict := categoryConflict(err); conflict != nil {
			return conflict
		}
		return database.Classify(fmt.Errorf("could not create category: %w", err))
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category, userID uuid.UUID) error {
	query := `
		UPDATE categories
		SET name = $1, slug = $2, color = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5 AND is_predefined = FALSE
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, category.Name, category.Slug, category.Color, category.ID, userID).
		Scan(&category.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return financeErrors.ErrCategoryNotFound
		}
		if conflict := categoryConflict(err); conflict != nil {
			return conflict
		}
		return database.Classify(fmt.Errorf("could not update category: %w", err))
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2 AND is_predefined = FALSE`, id, userID)
	if err != nil {
		return false, database.Classify(fmt.Errorf("could not delete category: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, database.Classify(err)
	}
	return affected > 0, nil
}

// UpsertPredefined inserts the predefined categories, keyed by slug, and
// refreshes the name and color of the ones that already exist.
func (r *CategoryRepository) UpsertPredefined(ctx context.Context, categories []domain.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return database.Classify(fmt.Errorf("could not begin transaction: %w", err))
	}
	defer tx.Rollback()

	query := `
		INSERT INTO categories (user_id, name, slug, color, is_predefined, created_at, updated_at)
		VALUES (NULL, $1, $2, $3, TRUE, NOW(), NOW())
		ON CONFLICT (slug) WHERE user_id IS NULL
		DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color, updated_at = NOW()
		WHERE categories.name <> EXCLUDED.name OR categories.color <> EXCLUDED.color
	`
	for _, category := range categories {
		if _, err := tx.ExecContext(ctx, query, category.Name, category.Slug, category.Color); err != nil {
			return database.Classify(fmt.Errorf("could not upsert predefined category %q: %w", category.Slug, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return database.Classify(fmt.Errorf("could not commit predefined categories: %w", err))
	}
	return nil
}
