package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", fmt.Sprintf("req-%d", h.calls))
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"calls":%d}`, h.calls)
}

func newCached(t *testing.T, h http.Handler) http.Handler {
	t.Helper()
	mc := NewMemoryCache(DefaultConfig())
	t.Cleanup(func() { mc.Close() })
	return Middleware(MiddlewareConfig{Cache: mc, Prefix: "/api", TTL: time.Minute})(h)
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for name, values := range header {
		req.Header[name] = values
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareDisabledWithoutCache(t *testing.T) {
	assert.Nil(t, Middleware(MiddlewareConfig{}))
}

func TestMiddlewareHitAndMiss(t *testing.T) {
	inner := &countingHandler{}
	h := newCached(t, inner)

	first := serve(h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, `{"calls":1}`, first.Body.String())

	second := serve(h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Empty(t, second.Header().Get("X-Request-ID"))
	assert.Equal(t, 1, inner.calls)

	other := serve(h, http.MethodGet, "/api/posts/1", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, inner.calls)
}

func TestMiddlewareKeysOnInclude(t *testing.T) {
	inner := &countingHandler{}
	h := newCached(t, inner)

	serve(h, http.MethodGet, "/api/posts", nil)
	withInclude := serve(h, http.MethodGet, "/api/posts", http.Header{"X-Include": {"Comments"}})
	assert.Equal(t, "MISS", withInclude.Header().Get("X-Cache"))

	same := serve(h, http.MethodGet, "/api/posts", http.Header{"X-Include": {" comments "}})
	assert.Equal(t, "HIT", same.Header().Get("X-Cache"))
	assert.Equal(t, 2, inner.calls)
}

func TestMiddlewareWriteClears(t *testing.T) {
	inner := &countingHandler{}
	h := newCached(t, inner)

	serve(h, http.MethodGet, "/api/posts", nil)
	serve(h, http.MethodPost, "/api/posts", nil)

	after := serve(h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.Equal(t, `{"calls":3}`, after.Body.String())
}

func TestMiddlewareFailedWriteKeepsCache(t *testing.T) {
	inner := &countingHandler{}
	h := newCached(t, inner)

	serve(h, http.MethodGet, "/api/posts", nil)
	inner.status = http.StatusBadRequest
	serve(h, http.MethodPut, "/api/posts/1", nil)

	after := serve(h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, "HIT", after.Header().Get("X-Cache"))
}

func TestMiddlewareSkipsErrorsAndForeignPaths(t *testing.T) {
	inner := &countingHandler{status: http.StatusNotFound}
	h := newCached(t, inner)

	serve(h, http.MethodGet, "/api/posts/9", nil)
	serve(h, http.MethodGet, "/api/posts/9", nil)
	assert.Equal(t, 2, inner.calls)

	inner.status = http.StatusOK
	outside := serve(h, http.MethodGet, "/healthz", nil)
	assert.Empty(t, outside.Header().Get("X-Cache"))
	serve(h, http.MethodGet, "/apiary", nil)
	serve(h, http.MethodGet, "/apiary", nil)
	assert.Equal(t, 5, inner.calls)
}

func TestMiddlewareConditionalHit(t *testing.T) {
	h := newCached(t, &countingHandler{})

	serve(h, http.MethodGet, "/api/posts", nil)
	hit := serve(h, http.MethodGet, "/api/posts", nil)
	etag := hit.Header().Get("ETag")
	require.NotEmpty(t, etag)

	notModified := serve(h, http.MethodGet, "/api/posts", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Empty(t, notModified.Body.String())
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, string) error { return nil }
func (brokenCache) Clear(context.Context) error          { return nil }
func (brokenCache) Close() error                         { return nil }

func TestMiddlewareBackendFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inner := &countingHandler{}
	h := Middleware(MiddlewareConfig{Cache: brokenCache{}, Prefix: "/api", Logger: zap.New(core)})(inner)

	rec := serve(h, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"calls":1}`, rec.Body.String())
	assert.Equal(t, 2, logs.Len())
}

func TestRequestKey(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/api/posts?limit=5&order=title", nil)
	b := httptest.NewRequest(http.MethodGet, "/api/posts?order=title&limit=5", nil)
	assert.Equal(t, RequestKey(a), RequestKey(b))

	c := httptest.NewRequest(http.MethodGet, "/api/posts?order=title&order=id", nil)
	d := httptest.NewRequest(http.MethodGet, "/api/posts?order=id&order=title", nil)
	assert.NotEqual(t, RequestKey(c), RequestKey(d))
}

func TestNotModified(t *testing.T) {
	etag := GenerateETag([]byte("body"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", `"other", W/`+etag)
	rec := httptest.NewRecorder()
	assert.True(t, NotModified(rec, req, etag))
	assert.Equal(t, http.StatusNotModified, rec.Code)

	req.Header.Set("If-None-Match", `"other"`)
	assert.False(t, NotModified(httptest.NewRecorder(), req, etag))
}
