package cache

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MiddlewareConfig holds configuration for the cache middleware
type MiddlewareConfig struct {
	// Cache is the cache backend to use
	Cache Cache
	// Prefix limits caching and invalidation to paths under it
	Prefix string
	// Key derives cache keys, defaults to RequestKey
	Key KeyFunc
	// TTL is the time-to-live for cached responses
	TTL time.Duration
	// Logger receives backend failures, which never fail the request
	Logger *zap.Logger
}

// cachedResponse represents a cached HTTP response
type cachedResponse struct {
	StatusCode int         `json:"status"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	ETag       string      `json:"etag"`
}

// headers never stored with a cached response
var uncachedHeaders = []string{"X-Request-Id", "X-Cache", "Set-Cookie"}

// Middleware caches successful GET responses under the prefix and clears the
// cache after any successful write under it. A nil config.Cache disables it.
func Middleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	if config.Cache == nil {
		return nil
	}
	if config.Key == nil {
		config.Key = RequestKey
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !underPrefix(r.URL.Path, config.Prefix) {
				next.ServeHTTP(w, r)
				return
			}

			switch r.Method {
			case http.MethodGet:
				serveCached(config, next, w, r)
			case http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				rec := newResponseRecorder(w, false)
				next.ServeHTTP(rec, r)
				if rec.statusCode < 300 {
					if err := config.Cache.Clear(r.Context()); err != nil {
						config.Logger.Warn("cache clear failed", zap.Error(err))
					}
				}
			}
		})
	}
}

func serveCached(config MiddlewareConfig, next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := config.Key(r)

	data, err := config.Cache.Get(ctx, key)
	if err == nil {
		var cached cachedResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			if NotModified(w, r, cached.ETag) {
				return
			}
			for name, values := range cached.Headers {
				w.Header()[name] = values
			}
			w.Header().Set("ETag", cached.ETag)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(cached.StatusCode)
			w.Write(cached.Body)
			return
		}
	} else if !IsMiss(err) {
		config.Logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	w.Header().Set("X-Cache", "MISS")
	rec := newResponseRecorder(w, true)
	next.ServeHTTP(rec, r)

	if rec.statusCode != http.StatusOK {
		return
	}

	headers := rec.snapshot.Clone()
	for _, name := range uncachedHeaders {
		headers.Del(name)
	}
	cached := cachedResponse{
		StatusCode: rec.statusCode,
		Headers:    headers,
		Body:       rec.body.Bytes(),
		ETag:       GenerateETag(rec.body.Bytes()),
	}

	data, err = json.Marshal(cached)
	if err != nil {
		return
	}
	if err := config.Cache.Set(ctx, key, data, config.TTL); err != nil {
		config.Logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func underPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// responseRecorder tracks the status of a response and, when buffering, keeps
// a copy of its body and headers
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	buffer      bool
	body        bytes.Buffer
	snapshot    http.Header
	wroteHeader bool
}

func newResponseRecorder(w http.ResponseWriter, buffer bool) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		buffer:         buffer,
	}
}

// WriteHeader records the status code and the headers sent with it
func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = statusCode
	r.wroteHeader = true
	r.snapshot = r.ResponseWriter.Header().Clone()
	r.ResponseWriter.WriteHeader(statusCode)
}

// Write records the response body and writes to the underlying writer
func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if r.buffer {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

// Flush implements http.Flusher interface
func (r *responseRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
