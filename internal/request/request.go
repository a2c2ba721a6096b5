// Package request parses the common parts of inbound HTTP requests into
// values or validation errors.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

const (
	maxBodyBytes    = 1 << 20
	DateLayout      = "2006-01-02"
	errInvalidLimit = "limit must be between 1 and %d"
)

var (
	ErrInvalidBody = appErrors.NewValidationError("Invalid request body")
	ErrInvalidPage = appErrors.NewValidationError("page must be a positive integer")
	ErrPageTooFar  = appErrors.NewValidationError("page is out of range")
	ErrInvalidID   = fmt.Errorf("invalid id: %w", appErrors.ErrNotFound)
	ErrInvalidDate = appErrors.NewValidationError("date must be YYYY-MM-DD or RFC3339")
)

// DecodeJSON decodes a single JSON object from the body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return ErrInvalidBody
	}
	if decoder.More() {
		return ErrInvalidBody
	}
	return nil
}

// PageParams reads page and limit. Missing values fall back to page 1 and
// defaultLimit; out of range values are validation errors. page*limit stays
// within int32 so the row offset cannot overflow.
func PageParams(r *http.Request, defaultLimit, maxLimit int) (page, limit int, err error) {
	page, limit = 1, defaultLimit
	query := r.URL.Query()

	if pageStr := query.Get("page"); pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			return 0, 0, ErrInvalidPage
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxLimit {
			return 0, 0, appErrors.NewValidationErrorf(errInvalidLimit, maxLimit)
		}
	}
	if page > math.MaxInt32/limit {
		return 0, 0, ErrPageTooFar
	}
	return page, limit, nil
}

// ParseDate accepts a calendar date or a full RFC3339 timestamp.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// OptionalDate parses the query parameter name when present.
func OptionalDate(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, appErrors.NewValidationErrorf("%s must be YYYY-MM-DD or RFC3339", name)
	}
	return &t, nil
}

// OptionalDateEnd is OptionalDate for an inclusive upper bound: a bare
// calendar date extends to the last instant of that day.
func OptionalDateEnd(r *http.Request, name string) (*time.Time, error) {
	t, err := OptionalDate(r, name)
	if err != nil || t == nil {
		return t, err
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(r.URL.Query().Get(name))); err == nil {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return &end, nil
	}
	return t, nil
}

// OptionalUUID parses the query parameter name when present.
func OptionalUUID(r *http.Request, name string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, appErrors.NewValidationErrorf("%s must be a UUID", name)
	}
	return &id, nil
}

// PathUUID reads a path value. A malformed id cannot name an existing
// resource, so it reports not found.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
