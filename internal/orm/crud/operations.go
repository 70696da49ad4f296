// Package crud implements the model contract over database/sql
package crud

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/conduit-lang/dataservice/internal/orm/model"
	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/relationships"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// Executor is the subset of *sql.DB the operations need
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Operations provides CRUD operations for a resource
type Operations struct {
	resource *schema.ResourceSchema
	db       Executor
	dialect  query.Dialect
	builder  *query.Builder
	loader   *relationships.Loader
}

var _ model.Model = (*Operations)(nil)

// NewOperations creates a new Operations instance. loader may be nil when includes are
// never requested.
func NewOperations(
	resource *schema.ResourceSchema,
	db Executor,
	dialect query.Dialect,
	loader *relationships.Loader,
) *Operations {
	return &Operations{
		resource: resource,
		db:       db,
		dialect:  dialect,
		builder:  query.NewBuilder(resource, dialect),
		loader:   loader,
	}
}

// NewRegistry builds a model registry with one Operations per sealed schema
func NewRegistry(schemas *schema.Registry, db Executor, dialect query.Dialect) (*model.Registry, error) {
	if !schemas.Sealed() {
		return nil, fmt.Errorf("schema registry must be sealed")
	}

	all := schemas.All()
	loader := relationships.NewLoader(db, dialect, all)

	models := make([]model.Model, 0, len(all))
	for _, name := range schemas.List() {
		models = append(models, NewOperations(all[name], db, dialect, loader))
	}
	return model.NewRegistry(models...)
}

// Schema returns the resource schema
func (o *Operations) Schema() *schema.ResourceSchema {
	return o.resource
}

// Build returns an unsaved record holding the known fields of attrs
func (o *Operations) Build(attrs map[string]interface{}) model.Instance {
	return o.newRecord(o.knownFields(attrs), nil, false)
}

func (o *Operations) newRecord(attrs, included map[string]interface{}, persisted bool) *Record {
	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	return &Record{ops: o, attrs: attrs, included: included, persisted: persisted}
}

func (o *Operations) knownFields(attrs map[string]interface{}) map[string]interface{} {
	known := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		if field, ok := o.resource.Fields[k]; ok {
			known[k] = coerceValue(field, v)
		}
	}
	return known
}

// coerceValue converts whole JSON numbers to int64 for integer columns
func coerceValue(field *schema.Field, v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok || field.Type == nil {
		return v
	}
	switch field.Type.BaseType {
	case schema.TypeInt, schema.TypeBigInt:
		if f == math.Trunc(f) {
			return int64(f)
		}
	}
	return v
}

// primaryKeys returns the columns identifying a row
func (o *Operations) primaryKeys() []string {
	if len(o.resource.PrimaryKeys) > 0 {
		return o.resource.PrimaryKeys
	}
	return []string{"id"}
}
