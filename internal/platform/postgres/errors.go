package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/todos-api/internal/dbsession"
	"github.com/phrazzld/todos-api/internal/store"
)

// PostgreSQL error codes and classes this package maps.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
	stringTooLongCode       = "22001"

	// Class 53, insufficient resources: too_many_connections, out_of_memory...
	insufficientResourcesClass = "53"
)

// Constraint names from the migrations.
const (
	usersUsernameKey      = "users_username_key"
	assignmentsPrimaryKey = "assignments_pkey"
	assignmentsTodoFKey   = "assignments_todo_id_fkey"
	assignmentsUserFKey   = "assignments_user_id_fkey"
	todosTitleCheck       = "todos_title_check"
)

// constraintErrors names the store error each schema constraint stands for.
var constraintErrors = map[string]error{
	usersUsernameKey:      store.ErrUsernameExists,
	assignmentsPrimaryKey: store.ErrAlreadyAssigned,
	assignmentsTodoFKey:   store.ErrTodoNotFound,
	assignmentsUserFKey:   store.ErrUserNotFound,
	todosTitleCheck:       store.ErrInvalidEntity,
}

// MapError translates a database error into the store error callers compare
// against with errors.Is. Violations of known constraints map to their
// specific error; other integrity violations map by SQLSTATE. The cause is
// kept in the message. Unrecognised errors are returned unchanged.
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

	if specific, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %v", specific, err)
	}

	switch {
	case pgErr.Code == uniqueViolationCode:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case pgErr.Code == foreignKeyViolationCode,
		pgErr.Code == checkViolationCode:
		return fmt.Errorf("%w: constraint %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case pgErr.Code == notNullViolationCode,
		pgErr.Code == stringTooLongCode:
		return fmt.Errorf("%w: column %s: %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	case strings.HasPrefix(pgErr.Code, insufficientResourcesClass):
		return fmt.Errorf("%w: %v", dbsession.ErrResourceExhausted, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CheckRowsAffected returns notFound when an UPDATE or DELETE touched no row.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("nil result provided to CheckRowsAffected")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
