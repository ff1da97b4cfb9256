package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// MapError translates driver errors into domain sentinels. A missing row
// and a dangling foreign key both mean the referenced record does not
// exist, so both become notFound. Anything else passes through.
func MapError(err error, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	}

	switch Code(err) {
	case CodeUniqueViolation:
		return duplicate
	case CodeForeignKeyViolation:
		return notFound
	}
	return err
}

// Code returns the SQLSTATE of a Postgres error, or "".
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
