package domain

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

const (
	DefaultCategoryColor = "#6366f1"
	maxCategoryNameLen   = 50
	maxCategorySlugLen   = 50
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

type Category struct {
	ID        uuid.UUID
	Ownership Ownership
	Name      string
	Slug      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Category) IsPredefined() bool {
	return c.Ownership.IsSystem()
}

func (c Category) MarshalJSON() ([]byte, error) {
	var userID *uuid.UUID
	if owner, ok := c.Ownership.Owner(); ok {
		userID = &owner
	}
	return json.Marshal(struct {
		ID           uuid.UUID  `json:"id"`
		UserID       *uuid.UUID `json:"userId"`
		Name         string     `json:"name"`
		Slug         string     `json:"slug"`
		Color        string     `json:"color"`
		IsPredefined bool       `json:"isPredefined"`
		CreatedAt    time.Time  `json:"createdAt"`
		UpdatedAt    time.Time  `json:"updatedAt"`
	}{c.ID, userID, c.Name, c.Slug, c.Color, c.IsPredefined(), c.CreatedAt, c.UpdatedAt})
}

type CategoryInput struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

// Normalize trims the input and fills the default color.
func (in *CategoryInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = DefaultCategoryColor
	}
}

func (in CategoryInput) Validate() error {
	var errs appErrors.ValidationErrors
	if err := validateCategoryName(in.Name); err != nil {
		errs.Add(err)
	}
	if err := validateCategorySlug(in.Slug); err != nil {
		errs.Add(err)
	}
	if err := validateCategoryColor(in.Color); err != nil {
		errs.Add(err)
	}
	return errs.ErrOrNil()
}

// CategoryPatch changes only the fields that are set.
type CategoryPatch struct {
	Name  *string `json:"name"`
	Slug  *string `json:"slug"`
	Color *string `json:"color"`
}

func (p *CategoryPatch) Normalize() {
	for _, field := range []*string{p.Name, p.Slug, p.Color} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}

func (p CategoryPatch) IsEmpty() bool {
	return p.Name == nil && p.Slug == nil && p.Color == nil
}

func (p CategoryPatch) Validate() error {
	if p.IsEmpty() {
		return financeErrors.ErrNothingToUpdate
	}
	var errs appErrors.ValidationErrors
	if p.Name != nil {
		if err := validateCategoryName(*p.Name); err != nil {
			errs.Add(err)
		}
	}
	if p.Slug != nil {
		if err := validateCategorySlug(*p.Slug); err != nil {
			errs.Add(err)
		}
	}
	if p.Color != nil {
		if err := validateCategoryColor(*p.Color); err != nil {
			errs.Add(err)
		}
	}
	return errs.ErrOrNil()
}

func (p CategoryPatch) ApplyTo(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

func validateCategoryName(name string) error {
	if name == "" {
		return appErrors.NewValidationError("name is required")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return appErrors.NewValidationErrorf("name must be at most %d characters", maxCategoryNameLen)
	}
	return nil
}

func validateCategorySlug(slug string) error {
	if slug == "" {
		return appErrors.NewValidationError("slug is required")
	}
	if len(slug) > maxCategorySlugLen {
		return appErrors.NewValidationErrorf("slug must be at most %d characters", maxCategorySlugLen)
	}
	if !slugPattern.MatchString(slug) {
		return appErrors.NewValidationError("slug may only contain lowercase letters, digits and hyphens")
	}
	return nil
}

func validateCategoryColor(color string) error {
	if !colorPattern.MatchString(color) {
		return appErrors.NewValidationError("color must be a hex color such as #ff0000")
	}
	return nil
}

type CategorySortField string

const (
	CategorySortName      CategorySortField = "name"
	CategorySortCreatedAt CategorySortField = "createdAt"
)

const DefaultCategoryLimit = 50

type CategoryListQuery struct {
	IncludePredefined bool
	Page              int
	Limit             int
	SortBy            CategorySortField
	SortOrder         SortOrder
}

func DefaultCategoryListQuery() CategoryListQuery {
	return CategoryListQuery{
		IncludePredefined: true,
		Page:              1,
		Limit:             DefaultCategoryLimit,
		SortBy:            CategorySortName,
		SortOrder:         SortAsc,
	}
}

func (q CategoryListQuery) Validate() error {
	if err := validatePage(q.Page, q.Limit); err != nil {
		return err
	}
	switch q.SortBy {
	case CategorySortName, CategorySortCreatedAt:
	default:
		return financeErrors.ErrInvalidSortBy
	}
	return q.SortOrder.Validate()
}

func (q CategoryListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type CategoryRepository interface {
	List(ctx context.Context, userID uuid.UUID, q CategoryListQuery) ([]Category, int, error)
	// FindVisible returns a category the user owns or a predefined one.
	FindVisible(ctx context.Context, id, userID uuid.UUID) (*Category, error)
	ExistsVisible(ctx context.Context, id, userID uuid.UUID) (bool, error)
	// NameTaken and SlugTaken check the user's own categories, ignoring
	// the excluded category, if any.
	NameTaken(ctx context.Context, userID uuid.UUID, name string, exclude *uuid.UUID) (bool, error)
	SlugTaken(ctx context.Context, userID uuid.UUID, slug string, exclude *uuid.UUID) (bool, error)
	Create(ctx context.Context, category *Category) error
	// Update writes a category owned by userID. Predefined categories are
	// never matched.
	Update(ctx context.Context, category *Category, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	UpsertPredefined(ctx context.Context, categories []Category) error
}
