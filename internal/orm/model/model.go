// Package model defines the persistence contract the HTTP layer programs against: a model
// handle per registered model and the instances it returns.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
)

// Instance is a single entity. It is serialized with encoding/json.
type Instance interface {
	json.Marshaler

	// Save persists a built instance
	Save(ctx context.Context) error

	// UpdateAttributes merges attrs into the instance and persists the change
	UpdateAttributes(ctx context.Context, attrs map[string]interface{}) error

	// Destroy deletes the instance
	Destroy(ctx context.Context) error
}

// CountResult is a page of rows plus the total number of matching rows
type CountResult struct {
	Count int64      `json:"count"`
	Rows  []Instance `json:"rows"`
}

// Model is the capability handle for one registered model. Lookups that find nothing
// return a nil Instance and a nil error.
type Model interface {
	Schema() *schema.ResourceSchema
	FindAll(ctx context.Context, q *query.Query) ([]Instance, error)
	FindAndCountAll(ctx context.Context, q *query.Query) (*CountResult, error)
	Find(ctx context.Context, q *query.Query) (Instance, error)
	FindByID(ctx context.Context, id string) (Instance, error)
	Build(attrs map[string]interface{}) Instance
}

// Registry maps model names to handles. It is immutable once constructed.
type Registry struct {
	models map[string]Model
	tables map[string]Model
	names  []string
}

// NewRegistry creates a registry from the given models, keyed by their schema names
func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{
		models: make(map[string]Model, len(models)),
		tables: make(map[string]Model, len(models)),
	}
	for _, m := range models {
		name := m.Schema().Name
		if _, exists := r.models[name]; exists {
			return nil, fmt.Errorf("model %s is already registered", name)
		}
		r.models[name] = m
		r.names = append(r.names, name)
		if table := m.Schema().TableName; table != "" {
			if _, taken := r.tables[table]; !taken {
				r.tables[table] = m
			}
		}
	}
	sort.Strings(r.names)
	return r, nil
}

// Get returns the named model
func (r *Registry) Get(name string) (Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Lookup returns the model registered under name, or failing that the model stored in
// the table called name
func (r *Registry) Lookup(name string) (Model, bool) {
	if m, ok := r.models[name]; ok {
		return m, true
	}
	m, ok := r.tables[name]
	return m, ok
}

// Names returns the sorted model names
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of registered models
func (r *Registry) Len() int {
	return len(r.models)
}
