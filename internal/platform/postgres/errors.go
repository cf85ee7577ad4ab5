package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/relay-api/internal/store"
)

// SQLSTATE codes the task store cares about.
const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeNotNullViolation = "23502"
	codeBadTextInput     = "22P02" // malformed jsonb or uuid literal
)

// pgErrorKinds maps a SQLSTATE code to the store sentinel it surfaces as.
var pgErrorKinds = map[string]error{
	codeUniqueViolation:  store.ErrDuplicate,
	codeCheckViolation:   store.ErrInvalidEntity,
	codeNotNullViolation: store.ErrInvalidEntity,
	codeBadTextInput:     store.ErrInvalidEntity,
}

// MapError translates driver errors into store sentinels so callers can test
// them with errors.Is. Errors without a mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	kind, ok := pgErrorKinds[pgErr.Code]
	if !ok {
		return err
	}
	if detail := constraintDetail(pgErr); detail != "" {
		return fmt.Errorf("%w: %s: %v", kind, detail, err)
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func constraintDetail(pgErr *pgconn.PgError) string {
	switch pgErr.Code {
	case codeCheckViolation:
		return "check constraint " + pgErr.ConstraintName
	case codeNotNullViolation:
		return "column " + pgErr.ColumnName + " is null"
	}
	return ""
}

// IsUniqueViolation reports whether err carries a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// CheckRowsAffected returns notFound (store.ErrNotFound when nil) if the
// statement touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("no result to inspect")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		return store.ErrNotFound
	}
	return notFound
}
