package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert category: %w", &pgconn.PgError{Code: "23505", ConstraintName: "categories_user_slug_key"})

	constraint, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "categories_user_slug_key", constraint)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
	_, ok = UniqueViolation(errors.New("other"))
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	assert.ErrorIs(t, Classify(opErr), appErrors.ErrUnavailable)
	assert.ErrorIs(t, Classify(driver.ErrBadConn), appErrors.ErrUnavailable)
	assert.ErrorIs(t, Classify(&pgconn.PgError{Code: "57P01"}), appErrors.ErrUnavailable)
	assert.ErrorIs(t, Classify(&pgconn.PgError{Code: "08006"}), appErrors.ErrUnavailable)

	plain := &pgconn.PgError{Code: "42P01"}
	assert.Same(t, plain, Classify(plain))
	assert.NoError(t, Classify(nil))
}
