package autoapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/conduit-lang/dataservice/internal/orm/model"
	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	"github.com/stretchr/testify/require"
)

// fakeInstance is an in-memory model.Instance
type fakeInstance struct {
	attrs map[string]interface{}

	SaveFunc    func(ctx context.Context) error
	UpdateFunc  func(ctx context.Context, attrs map[string]interface{}) error
	DestroyFunc func(ctx context.Context) error

	saved     bool
	destroyed bool
}

func newInstance(attrs map[string]interface{}) *fakeInstance {
	return &fakeInstance{attrs: attrs}
}

func (i *fakeInstance) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.attrs)
}

func (i *fakeInstance) Save(ctx context.Context) error {
	if i.SaveFunc != nil {
		if err := i.SaveFunc(ctx); err != nil {
			return err
		}
	}
	i.saved = true
	return nil
}

func (i *fakeInstance) UpdateAttributes(ctx context.Context, attrs map[string]interface{}) error {
	if i.UpdateFunc != nil {
		if err := i.UpdateFunc(ctx, attrs); err != nil {
			return err
		}
	}
	for k, v := range attrs {
		i.attrs[k] = v
	}
	return nil
}

func (i *fakeInstance) Destroy(ctx context.Context) error {
	if i.DestroyFunc != nil {
		if err := i.DestroyFunc(ctx); err != nil {
			return err
		}
	}
	i.destroyed = true
	return nil
}

// fakeModel is a model.Model whose operations are supplied per test. Every call is
// recorded; an operation without a function finds nothing.
type fakeModel struct {
	schema *schema.ResourceSchema

	FindAllFunc         func(ctx context.Context, q *ormquery.Query) ([]model.Instance, error)
	FindAndCountAllFunc func(ctx context.Context, q *ormquery.Query) (*model.CountResult, error)
	FindFunc            func(ctx context.Context, q *ormquery.Query) (model.Instance, error)
	FindByIDFunc        func(ctx context.Context, id string) (model.Instance, error)
	BuildFunc           func(attrs map[string]interface{}) model.Instance

	calls   []string
	queries []*ormquery.Query
}

func (m *fakeModel) Schema() *schema.ResourceSchema { return m.schema }

func (m *fakeModel) FindAll(ctx context.Context, q *ormquery.Query) ([]model.Instance, error) {
	m.record("FindAll", q)
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx, q)
	}
	return nil, nil
}

func (m *fakeModel) FindAndCountAll(ctx context.Context, q *ormquery.Query) (*model.CountResult, error) {
	m.record("FindAndCountAll", q)
	if m.FindAndCountAllFunc != nil {
		return m.FindAndCountAllFunc(ctx, q)
	}
	return &model.CountResult{}, nil
}

func (m *fakeModel) Find(ctx context.Context, q *ormquery.Query) (model.Instance, error) {
	m.record("Find", q)
	if m.FindFunc != nil {
		return m.FindFunc(ctx, q)
	}
	return nil, nil
}

func (m *fakeModel) FindByID(ctx context.Context, id string) (model.Instance, error) {
	m.record("FindByID", nil)
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *fakeModel) Build(attrs map[string]interface{}) model.Instance {
	m.record("Build", nil)
	if m.BuildFunc != nil {
		return m.BuildFunc(attrs)
	}
	return newInstance(attrs)
}

func (m *fakeModel) record(call string, q *ormquery.Query) {
	m.calls = append(m.calls, call)
	m.queries = append(m.queries, q)
}

func (m *fakeModel) lastQuery() *ormquery.Query {
	if len(m.queries) == 0 {
		return nil
	}
	return m.queries[len(m.queries)-1]
}

// blogSchemas registers Author, Post and Comment: a post belongs to an author under
// the alias "writer" and has many comments under the alias "replies"
func blogSchemas(t *testing.T) *schema.Registry {
	t.Helper()

	schemas := schema.NewRegistry()
	require.NoError(t, schemas.Register(schema.Define("Author").
		Field("id", schema.TypeInt, schema.Primary(), schema.Auto()).
		Field("name", schema.TypeString).
		HasMany("posts", "Post").
		Build()))
	require.NoError(t, schemas.Register(schema.Define("Post").
		Field("id", schema.TypeInt, schema.Primary(), schema.Auto()).
		Field("title", schema.TypeString).
		Field("author_id", schema.TypeInt, schema.Nullable()).
		BelongsTo("writer", "Author", "author_id").
		HasMany("replies", "Comment", "post_id").
		Build()))
	require.NoError(t, schemas.Register(schema.Define("Comment").
		Field("id", schema.TypeInt, schema.Primary(), schema.Auto()).
		Field("body", schema.TypeText).
		Field("post_id", schema.TypeInt).
		BelongsTo("post", "Post").
		Build()))
	require.NoError(t, schemas.Seal())
	return schemas
}

// fakeRegistry wraps each blog schema in a fakeModel
func fakeRegistry(t *testing.T) (*model.Registry, map[string]*fakeModel) {
	t.Helper()

	schemas := blogSchemas(t)
	fakes := make(map[string]*fakeModel)
	models := make([]model.Model, 0)
	for _, name := range schemas.List() {
		s, _ := schemas.Get(name)
		fake := &fakeModel{schema: s}
		fakes[name] = fake
		models = append(models, fake)
	}

	registry, err := model.NewRegistry(models...)
	require.NoError(t, err)
	return registry, fakes
}
