package crud

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/conduit-lang/dataservice/internal/orm/migrate"
	"github.com/conduit-lang/dataservice/internal/orm/model"
	"github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestResource creates a simple test resource schema
func createTestResource() *schema.ResourceSchema {
	return schema.Define("Post").
		Field("id", schema.TypeUUID, schema.Primary(), schema.Auto()).
		Field("title", schema.TypeString).
		Field("views", schema.TypeInt, schema.Nullable()).
		Build()
}

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

const postColumns = `"id", "title", "views"`

func TestBuildAndSave(t *testing.T) {
	db, mock := setupMock(t)
	ops := NewOperations(createTestResource(), db, query.Postgres, nil)

	mock.ExpectQuery(`INSERT INTO "posts" ("id", "title") VALUES ($1, $2) RETURNING ` + postColumns).
		WithArgs(sqlmock.AnyArg(), "Hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}).
			AddRow("5f0c6c38-5d3c-4a53-9d36-3b6c1a1f0a11", "Hello", nil))

	instance := ops.Build(map[string]interface{}{"title": "Hello", "unknown": "dropped"})
	require.NoError(t, instance.Save(context.Background()))

	record := instance.(*Record)
	assert.True(t, record.Persisted())
	assert.Equal(t, "5f0c6c38-5d3c-4a53-9d36-3b6c1a1f0a11", record.Get("id"))

	data, err := json.Marshal(instance)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"5f0c6c38-5d3c-4a53-9d36-3b6c1a1f0a11","title":"Hello","views":null}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID(t *testing.T) {
	db, mock := setupMock(t)
	ops := NewOperations(createTestResource(), db, query.Postgres, nil)
	id := "5f0c6c38-5d3c-4a53-9d36-3b6c1a1f0a11"

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT ` + postColumns + ` FROM "posts" WHERE "id" = $1 LIMIT $2`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}).AddRow(id, "Hello", int64(3)))

		instance, err := ops.FindByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, instance)
		assert.Equal(t, int64(3), instance.(*Record).Get("views"))
	})

	t.Run("absent", func(t *testing.T) {
		mock.ExpectQuery(`SELECT ` + postColumns + ` FROM "posts" WHERE "id" = $1 LIMIT $2`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}))

		instance, err := ops.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, instance)
	})

	t.Run("malformed id never queries", func(t *testing.T) {
		instance, err := ops.FindByID(context.Background(), "not-a-uuid")
		require.NoError(t, err)
		assert.Nil(t, instance)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAndCountAll(t *testing.T) {
	db, mock := setupMock(t)
	mock.MatchExpectationsInOrder(false)
	ops := NewOperations(createTestResource(), db, query.Postgres, nil)

	offset, limit := 10, 2
	q := &query.Query{
		Where:  map[string]interface{}{"title": "Hello"},
		Order:  []query.OrderTerm{{Field: "views", Direction: "desc"}},
		Offset: &offset,
		Limit:  &limit,
	}

	mock.ExpectQuery(`SELECT COUNT(*) FROM "posts" WHERE "title" = $1`).
		WithArgs("Hello").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))
	mock.ExpectQuery(`SELECT ` + postColumns + ` FROM "posts" WHERE "title" = $1 ORDER BY "views" DESC LIMIT $2 OFFSET $3`).
		WithArgs("Hello", 2, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}).
			AddRow("a", "Hello", int64(9)).
			AddRow("b", "Hello", int64(8)))

	result, err := ops.FindAndCountAll(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Count)
	assert.Len(t, result.Rows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAndCountAllFailure(t *testing.T) {
	db, mock := setupMock(t)
	mock.MatchExpectationsInOrder(false)
	ops := NewOperations(createTestResource(), db, query.Postgres, nil)
	limit := 5

	mock.ExpectQuery(`SELECT COUNT(*) FROM "posts"`).WillReturnError(sql.ErrConnDone)
	mock.ExpectQuery(`SELECT ` + postColumns + ` FROM "posts" LIMIT $1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}))

	_, err := ops.FindAndCountAll(context.Background(), &query.Query{Limit: &limit})
	require.Error(t, err)

	var crudErr *Error
	require.ErrorAs(t, err, &crudErr)
	assert.Equal(t, "DatabaseError", crudErr.Name())
}

func TestFindAllRejectsPaginatedIncludes(t *testing.T) {
	db, _ := setupMock(t)
	resource := createTestResource()
	ops := NewOperations(resource, db, query.Postgres, nil)
	limit := 1

	_, err := ops.FindAll(context.Background(), &query.Query{
		Limit:    &limit,
		Includes: []query.Include{{Model: resource, As: "self"}},
	})
	assert.ErrorIs(t, err, query.ErrPaginationWithIncludes)
}

func TestUpdateAttributesAndDestroy(t *testing.T) {
	db, mock := setupMock(t)
	ops := NewOperations(createTestResource(), db, query.Postgres, nil)
	id := "5f0c6c38-5d3c-4a53-9d36-3b6c1a1f0a11"

	record := ops.newRecord(map[string]interface{}{"id": id, "title": "Old", "views": int64(1)}, nil, true)

	mock.ExpectQuery(`UPDATE "posts" SET "title" = $1 WHERE "id" = $2 RETURNING ` + postColumns).
		WithArgs("New", id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}).AddRow(id, "New", int64(1)))

	require.NoError(t, record.UpdateAttributes(context.Background(), map[string]interface{}{"title": "New", "bogus": 1}))
	assert.Equal(t, "New", record.Get("title"))

	mock.ExpectExec(`DELETE FROM "posts" WHERE "id" = $1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, record.Destroy(context.Background()))
	assert.False(t, record.Persisted())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDestroyMissingRow(t *testing.T) {
	db, mock := setupMock(t)
	ops := NewOperations(createTestResource(), db, query.Postgres, nil)
	record := ops.newRecord(map[string]interface{}{"id": "x"}, nil, true)

	mock.ExpectExec(`DELETE FROM "posts" WHERE "id" = $1`).
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := record.Destroy(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

// SQLite end to end

func setupSQLite(t *testing.T) *model.Registry {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "crud.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schemas := schema.NewRegistry()
	require.NoError(t, schemas.Register(schema.Define("Author").
		Field("id", schema.TypeInt, schema.Primary(), schema.Auto()).
		Field("name", schema.TypeString, schema.Unique()).
		HasMany("posts", "Post").
		Build()))
	require.NoError(t, schemas.Register(schema.Define("Post").
		Field("id", schema.TypeInt, schema.Primary(), schema.Auto()).
		Field("title", schema.TypeString).
		Field("author_id", schema.TypeInt, schema.Nullable()).
		Field("created_at", schema.TypeTimestamp, schema.Auto()).
		BelongsTo("author", "Author").
		Build()))
	require.NoError(t, schemas.Seal())

	_, err = migrate.Sync(context.Background(), db, schemas, query.SQLite)
	require.NoError(t, err)

	registry, err := NewRegistry(schemas, db, query.SQLite)
	require.NoError(t, err)
	return registry
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	registry := setupSQLite(t)
	authors, _ := registry.Get("Author")
	posts, _ := registry.Get("Post")

	ann := authors.Build(map[string]interface{}{"name": "Ann"})
	require.NoError(t, ann.Save(ctx))
	annID := ann.(*Record).Get("id")
	assert.Equal(t, int64(1), annID)

	for _, title := range []string{"one", "two", "three"} {
		p := posts.Build(map[string]interface{}{"title": title, "author_id": annID})
		require.NoError(t, p.Save(ctx))
		assert.NotNil(t, p.(*Record).Get("created_at"))
	}

	found, err := authors.Find(ctx, &query.Query{
		Where:    map[string]interface{}{"id": float64(1)},
		Includes: []query.Include{{Model: posts.Schema(), As: "posts"}},
	})
	require.NoError(t, err)
	require.NotNil(t, found)
	included, ok := found.(*Record).Included("posts")
	require.True(t, ok)
	assert.Len(t, included, 3)

	offset, limit := 1, 1
	page, err := posts.FindAndCountAll(ctx, &query.Query{
		Order:  []query.OrderTerm{{Field: "title", Direction: "asc"}},
		Offset: &offset,
		Limit:  &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Count)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "three", page.Rows[0].(*Record).Get("title"))

	dup := authors.Build(map[string]interface{}{"name": "Ann"})
	err = dup.Save(ctx)
	assert.ErrorIs(t, err, ErrUniqueViolation)

	orphan := posts.Build(map[string]interface{}{"title": "orphan", "author_id": 99})
	assert.ErrorIs(t, orphan.Save(ctx), ErrForeignKeyViolation)

	first, err := posts.FindByID(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, first.UpdateAttributes(ctx, map[string]interface{}{"title": "uno"}))
	assert.Equal(t, "uno", first.(*Record).Get("title"))

	require.NoError(t, first.Destroy(ctx))
	gone, err := posts.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	missing, err := posts.FindByID(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
