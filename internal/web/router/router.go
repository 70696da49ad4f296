// Package router assembles the HTTP surface of the data service: the auto-REST
// dispatcher, health and metrics endpoints, and the middleware around them.
package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/conduit-lang/dataservice/internal/web/autoapi"
	"github.com/conduit-lang/dataservice/internal/web/middleware"
	"github.com/conduit-lang/dataservice/internal/web/response"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Config describes the pieces mounted on the router
type Config struct {
	// Dispatcher serves everything under its prefix. Required.
	Dispatcher *autoapi.Dispatcher

	// Logger receives request logs and recovered panics
	Logger *zap.Logger

	// Middleware runs after request id, logging and recovery, before the
	// dispatcher. Nil entries are skipped.
	Middleware []middleware.Middleware

	// Health is run by GET /healthz; nil always reports healthy
	Health HealthCheck

	// Gatherer is exposed on GET /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer

	// ShowErrorDetails adds request details to 404 and 405 bodies
	ShowErrorDetails bool
}

// Router manages HTTP routing using chi framework
type Router struct {
	mux    chi.Router
	routes []RouteInfo
}

// RouteInfo describes a route mounted on the router, for introspection
type RouteInfo struct {
	Method  string
	Pattern string
}

// New builds the router. The dispatcher sits in the middleware chain, so any
// request it does not recognize falls through to the chi routes and then to
// the not-found handler.
func New(config Config) *Router {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{mux: chi.NewRouter()}

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(logger, "/healthz", "/metrics"),
		middleware.Recovery(logger),
	).Extend(config.Middleware...)
	if config.Dispatcher != nil {
		chain.Use(config.Dispatcher.Middleware)
	}
	r.mux.Use(func(next http.Handler) http.Handler {
		return chain.Then(next)
	})

	r.get("/healthz", healthHandler(config.Health))
	if config.Gatherer != nil {
		r.get("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if config.Dispatcher != nil {
		prefix := config.Dispatcher.Prefix()
		r.routes = append(r.routes,
			RouteInfo{Method: http.MethodGet, Pattern: prefix + "/"},
			RouteInfo{Method: http.MethodGet, Pattern: prefix + "/{model}"},
			RouteInfo{Method: http.MethodPost, Pattern: prefix + "/{model}"},
			RouteInfo{Method: http.MethodPost, Pattern: prefix + "/{model}/search"},
			RouteInfo{Method: http.MethodGet, Pattern: prefix + "/{model}/{id}"},
			RouteInfo{Method: http.MethodPut, Pattern: prefix + "/{model}/{id}"},
			RouteInfo{Method: http.MethodDelete, Pattern: prefix + "/{model}/{id}"},
		)
	}

	SetupDefaultErrorHandlers(r, config.ShowErrorDetails)
	return r
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Get registers an extra GET route outside the dispatcher's prefix
func (r *Router) Get(pattern string, handler http.HandlerFunc) {
	r.get(pattern, handler)
}

func (r *Router) get(pattern string, handler http.HandlerFunc) {
	r.mux.Get(pattern, handler)
	r.routes = append(r.routes, RouteInfo{Method: http.MethodGet, Pattern: pattern})
}

// Routes returns the mounted routes sorted by pattern, then method
func (r *Router) Routes() []RouteInfo {
	routes := make([]RouteInfo, len(r.routes))
	copy(routes, r.routes)
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

type healthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				response.JSON(w, http.StatusServiceUnavailable, healthStatus{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		response.JSON(w, http.StatusOK, healthStatus{Status: "ok"})
	}
}
