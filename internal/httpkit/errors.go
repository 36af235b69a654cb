package httpkit

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUndefinedTable returns true if the error is a PostgreSQL undefined table error.
// 42P01 = undefined_table
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return false
}

// IsUniqueViolation returns true if the error is a PostgreSQL unique constraint violation.
// 23505 = unique_violation
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
