package domain

import (
	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	financeErrors "github.com/familyspend/ExpenseTracker/internal/finance/errors"
)

const MaxListLimit = 100

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Validate() error {
	if o != SortAsc && o != SortDesc {
		return financeErrors.ErrInvalidSortOrder
	}
	return nil
}

// SQL returns the ORDER BY direction keyword.
func (o SortOrder) SQL() string {
	if o == SortAsc {
		return "ASC"
	}
	return "DESC"
}

func validatePage(page, limit int) error {
	if page < 1 {
		return appErrors.NewValidationError("page must be a positive integer")
	}
	if limit < 1 || limit > MaxListLimit {
		return appErrors.NewValidationErrorf("limit must be between 1 and %d", MaxListLimit)
	}
	return nil
}
