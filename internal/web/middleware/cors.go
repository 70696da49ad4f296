package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig lists what cross-origin callers may do. An origin of "*" allows
// everyone and "*.example.com" allows any subdomain of example.com.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// MaxAge is how long, in seconds, browsers may reuse a preflight answer
	MaxAge int
}

// DefaultCORSConfig opens the API to origins, letting browsers send X-Include
// and read X-Count
func DefaultCORSConfig(origins ...string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Include", RequestIDHeader},
		ExposedHeaders: []string{"X-Count", RequestIDHeader},
		MaxAge:         24 * 60 * 60,
	}
}

// CORS answers preflight requests itself and decorates the rest. It is nil when
// no origin is allowed.
func CORS(config CORSConfig) Middleware {
	if len(config.AllowedOrigins) == 0 {
		return nil
	}

	var (
		methods = strings.Join(config.AllowedMethods, ", ")
		headers = strings.Join(config.AllowedHeaders, ", ")
		exposed = strings.Join(config.ExposedHeaders, ", ")
		maxAge  = strconv.Itoa(config.MaxAge)
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			ok := origin != "" && originAllowed(origin, config.AllowedOrigins)
			h := w.Header()

			if ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			if ok {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if config.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, pattern := range allowed {
		switch {
		case pattern == "*", pattern == origin:
			return true
		case strings.HasPrefix(pattern, "*.") && strings.HasSuffix(origin, pattern[1:]):
			return true
		}
	}
	return false
}
