package crud

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Common CRUD error types
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrNoFields is returned when a write names no known field
	ErrNoFields = errors.New("no fields to write")
)

// Error is a failed persistence operation. It encodes to JSON as
// {"name": ..., "message": ...} so it can be returned to API clients.
type Error struct {
	Op       string
	Resource string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Name returns the error class reported to clients
func (e *Error) Name() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(e.Err, ErrUniqueViolation):
		return "UniqueConstraintError"
	case errors.Is(e.Err, ErrForeignKeyViolation):
		return "ForeignKeyConstraintError"
	case errors.Is(e.Err, ErrCheckViolation), errors.Is(e.Err, ErrNotNullViolation), errors.Is(e.Err, ErrNoFields):
		return "ValidationError"
	case errors.Is(e.Err, query.ErrUnknownField), errors.Is(e.Err, query.ErrInvalidFilter),
		errors.Is(e.Err, query.ErrPaginationWithIncludes):
		return "QueryError"
	default:
		return "DatabaseError"
	}
}

// MarshalJSON encodes the error for API responses
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string `json:"name"`
		Message  string `json:"message"`
		Resource string `json:"resource,omitempty"`
	}{e.Name(), e.Err.Error(), e.Resource})
}

func (o *Operations) fail(op string, err error) error {
	return &Error{Op: op, Resource: o.resource.Name, Err: ConvertDBError(err)}
}

// ConvertDBError converts database-specific errors to CRUD errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// PostgreSQL (pgx)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.Detail)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrCheckViolation, pgErr.Detail)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: column %s", ErrNotNullViolation, pgErr.ColumnName)
		}
	}

	// SQLite
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, liteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, liteErr.Error())
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %s", ErrCheckViolation, liteErr.Error())
		case sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %s", ErrNotNullViolation, liteErr.Error())
		}
	}

	return err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
