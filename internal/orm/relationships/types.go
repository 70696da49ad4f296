// Package relationships loads associated records for a page of results in one query per
// association.
package relationships

import (
	"context"
	"database/sql"
	"errors"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// Include failures
var (
	ErrUnknownRelationship = errors.New("no such association")
	ErrInvalidRelationType = errors.New("unsupported association type")
)

// Querier is an interface for executing SQL queries, allowing for testing and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Loader handles batched relationship loading
type Loader struct {
	db      Querier
	dialect query.Dialect
	schemas map[string]*schema.ResourceSchema
}

// NewLoader creates a new relationship loader. The schema map must not change afterwards.
func NewLoader(db Querier, dialect query.Dialect, schemas map[string]*schema.ResourceSchema) *Loader {
	return &Loader{
		db:      db,
		dialect: dialect,
		schemas: schemas,
	}
}

func (l *Loader) getSchema(name string) (*schema.ResourceSchema, bool) {
	s, ok := l.schemas[name]
	return s, ok
}
