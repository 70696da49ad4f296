package autoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for dispatched requests. A nil *Metrics
// records nothing.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the dispatcher metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataservice_requests_total",
			Help: "Total number of API requests handled, by model, operation and status",
		}, []string{"model", "operation", "status"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dataservice_request_duration_seconds",
			Help:    "Time spent handling API requests, by model and operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"model", "operation"}),
	}
}

// Observe records one handled request
func (m *Metrics) Observe(modelName, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(modelName, operation, strconv.Itoa(status)).Inc()
	m.Duration.WithLabelValues(modelName, operation).Observe(elapsed.Seconds())
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
