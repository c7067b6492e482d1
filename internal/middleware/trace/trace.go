// Package trace assigns request ids and logs each completed request.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/log"
)

// ContextKey type for context keys
type ContextKey string

// RequestIDKey is the context key for request ID
const RequestIDKey ContextKey = "request_id"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger

	totalRequests atomic.Int64
	totalMicros   atomic.Int64
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64 `json:"totalRequests"`
	AverageResponseTime int64 `json:"averageResponseTimeMicros"`
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	return &Middleware{extractIP: extractIP, logger: logger}
}

// Middleware tags the request with an id, exposes a request-scoped logger
// through log.FromContext and logs the outcome.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		reqLogger := m.logger.With(log.NewFields().WithRequestID(requestID).ToSlice()...)
		ctx = log.NewContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.totalRequests.Add(1)
		m.totalMicros.Add(duration.Microseconds())

		log.NewStructuredLogger(reqLogger).LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID returns a new random request id.
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	total := m.totalRequests.Load()
	metrics := Metrics{TotalRequests: total}
	if total > 0 {
		metrics.AverageResponseTime = m.totalMicros.Load() / total
	}
	return metrics
}
