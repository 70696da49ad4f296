package model

import (
	"context"
	"testing"

	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	schema *schema.ResourceSchema
}

func (m stubModel) Schema() *schema.ResourceSchema { return m.schema }

func (stubModel) FindAll(context.Context, *query.Query) ([]Instance, error) { return nil, nil }

func (stubModel) FindAndCountAll(context.Context, *query.Query) (*CountResult, error) {
	return &CountResult{}, nil
}

func (stubModel) Find(context.Context, *query.Query) (Instance, error) { return nil, nil }

func (stubModel) FindByID(context.Context, string) (Instance, error) { return nil, nil }

func (stubModel) Build(map[string]interface{}) Instance { return nil }

func stub(name string) Model {
	return stubModel{schema: schema.Define(name).Field("id", schema.TypeInt, schema.Primary()).Build()}
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(stub("Widget"), stub("Account"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Account", "Widget"}, registry.Names())
	assert.Equal(t, 2, registry.Len())

	m, ok := registry.Get("Widget")
	require.True(t, ok)
	assert.Equal(t, "Widget", m.Schema().Name)

	_, ok = registry.Get("widget")
	assert.False(t, ok, "lookup is case sensitive")

	names := registry.Names()
	names[0] = "Mutated"
	assert.Equal(t, "Account", registry.Names()[0])
}

func TestRegistryDuplicate(t *testing.T) {
	_, err := NewRegistry(stub("Widget"), stub("Widget"))
	assert.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	registry, err := NewRegistry(stub("Widget"), stub("Account"))
	require.NoError(t, err)

	m, ok := registry.Lookup("Widget")
	require.True(t, ok)
	assert.Equal(t, "Widget", m.Schema().Name)

	m, ok = registry.Lookup("accounts")
	require.True(t, ok, "falls back to the table name")
	assert.Equal(t, "Account", m.Schema().Name)

	_, ok = registry.Lookup("gadgets")
	assert.False(t, ok)
}
