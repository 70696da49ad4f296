package autoapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conduit-lang/dataservice/internal/orm/crud"
	"github.com/conduit-lang/dataservice/internal/orm/migrate"
	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "api.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schemas := blogSchemas(t)
	_, err = migrate.Sync(context.Background(), db, schemas, ormquery.SQLite)
	require.NoError(t, err)

	registry, err := crud.NewRegistry(schemas, db, ormquery.SQLite)
	require.NoError(t, err)

	d := New(registry, WithLogger(zaptest.NewLogger(t)))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestIntegration_CRUD(t *testing.T) {
	srv := setupServer(t)

	resp, body := call(t, srv, http.MethodPost, "/api/authors", `{"name":"Ann"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"id":1,"name":"Ann"}`, string(body))

	resp, body = call(t, srv, http.MethodPost, "/api/posts", `{"title":"First","author_id":1}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, srv, http.MethodPost, "/api/comments", `{"body":"Nice","post_id":1}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, srv, http.MethodGet, "/api/posts/1", "", map[string]string{"X-Include": "authors,comments"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var post map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, "First", post["title"])
	assert.Equal(t, "Ann", post["writer"].(map[string]interface{})["name"])
	require.Len(t, post["replies"], 1)

	resp, body = call(t, srv, http.MethodPut, "/api/posts/1", `{"title":"Renamed"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"title":"Renamed"`)

	resp, _ = call(t, srv, http.MethodDelete, "/api/comments/1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, srv, http.MethodGet, "/api/comments/1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = call(t, srv, http.MethodGet, "/api/posts/not-a-number", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = call(t, srv, http.MethodPost, "/api/comments", `{"body":"Orphan","post_id":404}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "ForeignKeyConstraintError")

	resp, _ = call(t, srv, http.MethodGet, "/elsewhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_SearchPagination(t *testing.T) {
	srv := setupServer(t)

	for i := 1; i <= 60; i++ {
		status := "draft"
		if i <= 50 {
			status = "published"
		}
		body := fmt.Sprintf(`{"title":"%s-%02d"}`, status, i)
		resp, data := call(t, srv, http.MethodPost, "/api/posts", body, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	}

	filter := `{"title":{"like":"published-%"}}`

	resp, body := call(t, srv, http.MethodPost, "/api/posts/search?limit=10&offset=5&order=title%20asc", filter, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "50", resp.Header.Get(CountHeader))

	var page []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 10)
	assert.Equal(t, "published-06", page[0]["title"])

	resp, body = call(t, srv, http.MethodPost, "/api/posts/search?order=title%20desc", filter, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(CountHeader))

	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 50)
	assert.Equal(t, "published-50", all[0]["title"])

	resp, _ = call(t, srv, http.MethodPost, "/api/posts/search?limit=10", filter, map[string]string{"X-Include": "comments"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, srv, http.MethodPost, "/api/posts/search", `{"missing_field":1}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "QueryError")
}
