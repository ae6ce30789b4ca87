// Package trace tags outbound backend calls with a request id and logs their completion.
package trace

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bizdash/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the id to the backend.
	HeaderRequestID = "X-Request-ID"
)

// Transport is an http.RoundTripper that stamps X-Request-ID and logs each call.
type Transport struct {
	base    http.RoundTripper
	logger  *log.StructuredLogger
	metrics *Metrics
}

// Metrics tracks outbound request counts
type Metrics struct {
	TotalRequests       int64
	FailedRequests      int64
	AverageResponseTime int64 // in microseconds, last observed
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *log.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Transport{
		base:    base,
		logger:  log.NewStructuredLogger(logger),
		metrics: &Metrics{},
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = GetRequestID(req.Context())
	}
	if requestID == "" {
		requestID = GenerateRequestID()
	}

	// RoundTrippers must not modify the caller's request
	req = req.Clone(WithRequestID(req.Context(), requestID))
	req.Header.Set(HeaderRequestID, requestID)

	atomic.AddInt64(&t.metrics.TotalRequests, 1)

	resp, err := t.base.RoundTrip(req)

	duration := time.Since(start)
	atomic.StoreInt64(&t.metrics.AverageResponseTime, duration.Microseconds())

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if err != nil || status >= 400 {
		atomic.AddInt64(&t.metrics.FailedRequests, 1)
	}

	t.logger.LogRequestEnd(req.Context(), requestID, req.Method, req.URL.Path, status, duration.Milliseconds())

	return resp, err
}

// GetMetrics returns current metrics
func (t *Transport) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&t.metrics.TotalRequests),
		FailedRequests:      atomic.LoadInt64(&t.metrics.FailedRequests),
		AverageResponseTime: atomic.LoadInt64(&t.metrics.AverageResponseTime),
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
