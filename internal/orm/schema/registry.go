package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrSealed is returned by Register once the registry has been sealed
var ErrSealed = errors.New("schema registry is sealed")

// Registry holds the models served by the API. Models are registered in any
// order and resolved against each other when the registry is sealed.
type Registry struct {
	mu        sync.RWMutex
	schemas   map[string]*ResourceSchema
	validator *SchemaValidator
	sealed    bool
}

func NewRegistry() *Registry {
	return &Registry{
		schemas:   make(map[string]*ResourceSchema),
		validator: NewSchemaValidator(),
	}
}

// Register adds a model after checking its own fields. Association targets
// may name models registered later.
func (r *Registry) Register(s *ResourceSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch _, dup := r.schemas[s.Name]; {
	case r.sealed:
		return ErrSealed
	case dup:
		return fmt.Errorf("resource %s is already registered", s.Name)
	}
	if err := r.validator.ValidateStructural(s); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", s.Name, err)
	}

	r.schemas[s.Name] = s
	return nil
}

func (r *Registry) Get(name string) (*ResourceSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// All returns a snapshot of the registered models keyed by name
func (r *Registry) All() map[string]*ResourceSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*ResourceSchema, len(r.schemas))
	for name, s := range r.schemas {
		out[name] = s
	}
	return out
}

// List returns model names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.schemas)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// ValidateAll checks associations against the registered models, then fills in
// each association's target table and default foreign key.
func (r *Registry) ValidateAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve()
}

// Seal runs ValidateAll and closes the registry to further registration
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.resolve(); err != nil {
		return err
	}
	r.sealed = true
	return nil
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// GetDependencyOrder lists models with referenced tables first
func (r *Registry) GetDependencyOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return tableOrder(r.schemas)
}

// resolve requires r.mu held for writing
func (r *Registry) resolve() error {
	names := sortedKeys(r.schemas)
	for _, name := range names {
		if err := r.validator.Validate(r.schemas[name], r.schemas); err != nil {
			return fmt.Errorf("relationship validation failed: %w", err)
		}
	}

	for _, name := range names {
		owner := r.schemas[name]
		for _, rel := range owner.Relationships {
			rel.TargetTable = r.schemas[rel.TargetResource].TableName
			if rel.ForeignKey != "" {
				continue
			}
			if rel.Type == RelationshipBelongsTo {
				rel.ForeignKey = ToSnakeCase(rel.FieldName) + "_id"
			} else {
				rel.ForeignKey = ToSnakeCase(owner.Name) + "_id"
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
