package store

import (
	"errors"
	"fmt"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgUndefinedTable      = "42P01"
)

// SQL Server error numbers.
const (
	msPrimaryKeyViolation  = 2627
	msUniqueIndexViolation = 2601
	msConstraintConflict   = 547
	msNullInsert           = 515
	msInvalidObject        = 208
)

// writeError wraps a driver error into a *domain.WriteError, attaching the
// matching domain sentinel when the driver reports a known condition.
func writeError(table, op string, err error) error {
	if sentinel := classify(err); sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &domain.WriteError{Table: table, Op: op, Err: err}
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrDuplicateKey
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
			return domain.ErrConstraintViolation
		case pgUndefinedTable:
			return domain.ErrMissingTable
		}
		return nil
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case msPrimaryKeyViolation, msUniqueIndexViolation:
			return domain.ErrDuplicateKey
		case msConstraintConflict, msNullInsert:
			return domain.ErrConstraintViolation
		case msInvalidObject:
			return domain.ErrMissingTable
		}
	}
	return nil
}
