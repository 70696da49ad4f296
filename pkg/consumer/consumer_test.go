package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type recorded struct {
	method, path, include, contentType string
	body                               map[string]interface{}
}

func newService(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()

	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.include = r.Header.Get("X-Include")
		rec.contentType = r.Header.Get("Content-Type")
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&rec.body)
		}
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestGet(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, `{"id":7,"title":"Hello"}`)
	c := New(srv.URL+"/api/", "posts")

	var got post
	err := c.Get(context.Background(), 7, http.Header{"X-Include": {"comments"}}, &got)
	require.NoError(t, err)

	assert.Equal(t, post{ID: 7, Title: "Hello"}, got)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/posts/7", rec.path)
	assert.Equal(t, "comments", rec.include)
}

func TestGetAll(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, `[{"id":1},{"id":2}]`)
	c := New(srv.URL+"/api", "posts")

	var got []post
	require.NoError(t, c.GetAll(context.Background(), nil, &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "/api/posts", rec.path)
}

func TestCreateAndUpdate(t *testing.T) {
	srv, rec := newService(t, http.StatusCreated, `{"id":3,"title":"New"}`)
	c := New(srv.URL+"/api", "posts")

	var created post
	require.NoError(t, c.Create(context.Background(), map[string]string{"title": "New"}, &created))
	assert.Equal(t, 3, created.ID)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "application/json", rec.contentType)
	assert.Equal(t, "New", rec.body["title"])

	require.NoError(t, c.Update(context.Background(), "3", post{Title: "Edited"}, nil))
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/posts/3", rec.path)
	assert.Equal(t, "Edited", rec.body["title"])
}

func TestStatusError(t *testing.T) {
	srv, _ := newService(t, http.StatusNotFound, "")
	c := New(srv.URL+"/api", "posts")

	err := c.Get(context.Background(), 99, nil, &post{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "could not retrieve object")
}

func TestDecodeError(t *testing.T) {
	srv, _ := newService(t, http.StatusOK, "not json")
	c := New(srv.URL, "posts")

	err := c.GetAll(context.Background(), nil, &[]post{})
	assert.ErrorContains(t, err, "failed to decode response")
}

func TestTransportError(t *testing.T) {
	srv, _ := newService(t, http.StatusOK, "{}")
	srv.Close()

	c := New(srv.URL, "posts", WithHTTPClient(&http.Client{Timeout: time.Second}))
	err := c.Get(context.Background(), 1, nil, &post{})
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
