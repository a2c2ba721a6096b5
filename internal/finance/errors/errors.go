package errors

import (
	"fmt"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

// Not found errors wrap appErrors.ErrNotFound so that a missing resource and
// a resource owned by somebody else look the same to the caller.
var (
	ErrCategoryNotFound = fmt.Errorf("category not found: %w", appErrors.ErrNotFound)
	ErrExpenseNotFound  = fmt.Errorf("expense not found: %w", appErrors.ErrNotFound)
)

var (
	ErrCategoryNameTaken = appErrors.NewConflictError("Category name already exists")
	ErrCategorySlugTaken = appErrors.NewConflictError("Category slug already exists")
)

var (
	ErrInvalidCategory         = appErrors.NewValidationError("Category does not exist")
	ErrNothingToUpdate         = appErrors.NewValidationError("No fields to update")
	ErrUnsupportedExportFormat = appErrors.NewValidationError("Only csv export format is supported")
	ErrInvalidSortBy           = appErrors.NewValidationError("Invalid sortBy value")
	ErrInvalidSortOrder        = appErrors.NewValidationError("sortOrder must be asc or desc")
	ErrSearchTooLong           = appErrors.NewValidationError("search must be at most 200 characters")
	ErrInvalidDateRange        = appErrors.NewValidationError("dateFrom must not be after dateTo")
	ErrInvalidYear             = appErrors.NewValidationError("year must be between 1970 and 2100")
)
