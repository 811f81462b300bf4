// Package repository implements the domain ports over database/sql.
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"datafood/internal/domain"
)

// mapDBError wraps a driver failure as a *domain.DatabaseError carrying the
// engine's own error code where the driver exposes one.
func mapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrDatabase(op, "timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrDatabase(op, "canceled", err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return domain.ErrDatabase(op, string(pqErr.Code), err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return domain.ErrDatabase(op, strconv.Itoa(int(myErr.Number)), err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return domain.ErrDatabase(op, strconv.Itoa(int(liteErr.Code)), err)
	}
	return domain.ErrDatabase(op, "", err)
}
