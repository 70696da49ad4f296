package autoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/conduit-lang/dataservice/internal/orm/model"
	"github.com/conduit-lang/dataservice/internal/web/middleware"
	"go.uber.org/zap"
)

// DefaultPrefix is the path prefix the API is served under when none is configured
const DefaultPrefix = "/api"

// DefaultMaxBodyBytes bounds request bodies
const DefaultMaxBodyBytes int64 = 1 << 20

// Dispatcher routes API requests to the models of a registry
type Dispatcher struct {
	registry     *model.Registry
	prefix       string
	logger       *zap.Logger
	metrics      *Metrics
	maxBodyBytes int64
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithPrefix sets the path prefix. A trailing slash is ignored.
func WithPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		d.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithLogger sets the logger for persistence failures and delegations
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records every dispatched request in m
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithMaxBodyBytes bounds request bodies. Zero or less disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(d *Dispatcher) {
		d.maxBodyBytes = n
	}
}

// New creates a dispatcher over registry
func New(registry *model.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:     registry,
		prefix:       DefaultPrefix,
		logger:       zap.NewNop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prefix returns the path prefix the dispatcher serves
func (d *Dispatcher) Prefix() string {
	return d.prefix
}

// Middleware returns a middleware serving API requests and passing every other
// request to next
func (d *Dispatcher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.dispatch(w, r, next)
	})
}

// Handler serves API requests and answers everything else with 404
func (d *Dispatcher) Handler() http.Handler {
	return d.Middleware(http.NotFoundHandler())
}

func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, next http.Handler) {
	route := ParseRoute(d.prefix, r.Method, r.URL.Path)
	op := route.operation(r.Method)
	if op == "" {
		d.delegate(w, r, next, route)
		return
	}

	if route.Kind == RouteRoot {
		d.index(w, r)
		return
	}

	m, ok := d.registry.Lookup(route.ModelName)
	if !ok {
		d.delegate(w, r, next, route)
		return
	}

	if d.maxBodyBytes > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, d.maxBodyBytes)
	}

	rec := &statusRecorder{ResponseWriter: w}
	start := time.Now()

	switch op {
	case "list":
		d.list(rec, r, m)
	case "create":
		d.create(rec, r, m)
	case "search":
		d.search(rec, r, m)
	case "retrieve":
		d.retrieve(rec, r, m, route.Identifier)
	case "update":
		d.update(rec, r, m, route.Identifier)
	case "delete":
		d.remove(rec, r, m, route.Identifier)
	}

	d.metrics.Observe(m.Schema().Name, op, rec.code(), time.Since(start))
}

func (d *Dispatcher) delegate(w http.ResponseWriter, r *http.Request, next http.Handler, route Route) {
	if route.Kind != RouteNone {
		d.logger.Debug("delegating unhandled API request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route.Kind.String()),
			zap.String("model", route.ModelName),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}
	next.ServeHTTP(w, r)
}
