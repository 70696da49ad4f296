package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect captures the SQL differences between the supported databases
type Dialect interface {
	// Name returns the dialect name
	Name() string

	// Placeholder returns the bind placeholder for the nth (1-based) argument
	Placeholder(n int) string

	// QuoteIdentifier quotes a table or column name
	QuoteIdentifier(name string) string

	// ILike returns a case-insensitive LIKE expression
	ILike(column, placeholder string) string

	// OffsetWithoutLimit returns the clause needed before OFFSET when no limit is set
	OffsetWithoutLimit() string

	// NewParamBuilder returns an argument accumulator bound to the dialect
	NewParamBuilder() *ParamBuilder
}

// ParamBuilder accumulates query arguments and hands out placeholders for them
type ParamBuilder struct {
	dialect Dialect
	args    []interface{}
}

// Add records a value and returns its placeholder
func (pb *ParamBuilder) Add(v interface{}) string {
	pb.args = append(pb.args, v)
	return pb.dialect.Placeholder(len(pb.args))
}

// Params returns the recorded values in placeholder order
func (pb *ParamBuilder) Params() []interface{} {
	if pb.args == nil {
		return []interface{}{}
	}
	return pb.args
}

type postgresDialect struct{}

type sqliteDialect struct{}

var (
	// Postgres is the PostgreSQL dialect
	Postgres Dialect = postgresDialect{}

	// SQLite is the SQLite dialect
	SQLite Dialect = sqliteDialect{}
)

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }

func (postgresDialect) ILike(column, placeholder string) string {
	return fmt.Sprintf("%s ILIKE %s", column, placeholder)
}

func (postgresDialect) OffsetWithoutLimit() string { return "" }

func (d postgresDialect) NewParamBuilder() *ParamBuilder { return &ParamBuilder{dialect: d} }

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) ILike(column, placeholder string) string {
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", column, placeholder)
}

func (sqliteDialect) OffsetWithoutLimit() string { return " LIMIT -1" }

func (d sqliteDialect) NewParamBuilder() *ParamBuilder { return &ParamBuilder{dialect: d} }
