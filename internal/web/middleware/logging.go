package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LogEntry represents a log entry for a request
type LogEntry struct {
	RequestID    string
	Method       string
	Path         string
	StatusCode   int
	Duration     time.Duration
	BytesWritten int
	RemoteAddr   string
	UserAgent    string
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// Logger receives one entry per request
	Logger func(LogEntry)
	// SkipPaths is a list of paths to skip logging
	SkipPaths []string
}

// Logging logs every request to logger, except those under skipPaths
func Logging(logger *zap.Logger, skipPaths ...string) Middleware {
	return LoggingWithConfig(LoggingConfig{
		Logger:    ZapLogger(logger),
		SkipPaths: skipPaths,
	})
}

// LoggingWithConfig creates a logging middleware with custom configuration
func LoggingWithConfig(config LoggingConfig) Middleware {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok || config.Logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			config.Logger(LogEntry{
				RequestID:    GetRequestID(r.Context()),
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   rw.statusCode,
				Duration:     time.Since(start),
				BytesWritten: rw.bytesWritten,
				RemoteAddr:   r.RemoteAddr,
				UserAgent:    r.UserAgent(),
			})
		})
	}
}

// ZapLogger writes entries to logger: server errors at error level, client errors at
// warn, everything else at info
func ZapLogger(logger *zap.Logger) func(LogEntry) {
	return func(entry LogEntry) {
		fields := []zap.Field{
			zap.String("request_id", entry.RequestID),
			zap.String("method", entry.Method),
			zap.String("path", entry.Path),
			zap.Int("status", entry.StatusCode),
			zap.Duration("duration", entry.Duration),
			zap.Int("bytes", entry.BytesWritten),
			zap.String("remote_addr", entry.RemoteAddr),
			zap.String("user_agent", entry.UserAgent),
		}

		switch {
		case entry.StatusCode >= 500:
			logger.Error("request", fields...)
		case entry.StatusCode >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and bytes written
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write captures bytes written
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}
