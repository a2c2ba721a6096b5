package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

const (
	uniqueViolationCode = "23505"
	connectionClass     = "08"
	adminShutdownCode   = "57P01"
	crashShutdownCode   = "57P02"
	cannotConnectCode   = "57P03"
)

// UniqueViolation reports whether err is a unique constraint violation and,
// if so, the name of the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsUnavailable reports whether err means the database could not be reached,
// as opposed to a query that reached it and failed.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, connectionClass) ||
			pgErr.Code == adminShutdownCode ||
			pgErr.Code == crashShutdownCode ||
			pgErr.Code == cannotConnectCode
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err)
}

// Classify turns connection failures into appErrors.ErrUnavailable and leaves
// every other error untouched.
func Classify(err error) error {
	if IsUnavailable(err) {
		return fmt.Errorf("%w: %v", appErrors.ErrUnavailable, err)
	}
	return err
}
