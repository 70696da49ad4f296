package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// Execer is the subset of *sql.DB Sync needs
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Plan returns the CREATE TABLE statements for every registered resource, dependencies first
func Plan(registry *schema.Registry, dialect query.Dialect) ([]string, error) {
	order, err := registry.GetDependencyOrder()
	if err != nil {
		return nil, err
	}

	all := registry.All()
	gen := NewDDLGenerator(dialect)

	statements := make([]string, 0, len(order))
	for _, name := range order {
		ddl, err := gen.GenerateCreateTable(all[name], all)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		statements = append(statements, ddl)
	}
	return statements, nil
}

// Sync creates any missing tables. Existing tables are left untouched.
func Sync(ctx context.Context, db Execer, registry *schema.Registry, dialect query.Dialect) (int, error) {
	statements, err := Plan(registry, dialect)
	if err != nil {
		return 0, err
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return len(statements), nil
}
