// Package metrics exposes counters for decode failures, mutation outcomes, refetches
// and mutation events.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bizdash/internal/log"
)

const metricsPath = "/metrics"

// Refetch results.
const (
	RefetchOK     = "ok"
	RefetchFailed = "failed"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	decodeFailuresTotal prometheus.Counter
	mutationsTotal      *prometheus.CounterVec
	mutationDuration    *prometheus.HistogramVec
	refetchesTotal      *prometheus.CounterVec
	eventsTotal         *prometheus.CounterVec
}

// New creates and registers the collectors on registry (a fresh one when nil).
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.decodeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bizdash_decode_failures_total",
		Help: "Response bodies the lenient decoder could not parse",
	})

	m.mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdash_mutations_total",
			Help: "Optimistic mutations by final outcome",
		},
		[]string{"resource", "outcome"},
	)

	m.mutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizdash_mutation_duration_seconds",
			Help:    "Time from local apply to final outcome",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"resource"},
	)

	m.refetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdash_refetches_total",
			Help: "Scope list refetches triggered after empty mutation replies or events",
		},
		[]string{"result"},
	)

	m.eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdash_mutation_events_total",
			Help: "Mutation events published or consumed over AMQP",
		},
		[]string{"direction", "status"},
	)
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.decodeFailuresTotal.Describe(ch)
	m.mutationsTotal.Describe(ch)
	m.mutationDuration.Describe(ch)
	m.refetchesTotal.Describe(ch)
	m.eventsTotal.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.decodeFailuresTotal.Collect(ch)
	m.mutationsTotal.Collect(ch)
	m.mutationDuration.Collect(ch)
	m.refetchesTotal.Collect(ch)
	m.eventsTotal.Collect(ch)
}

// DecodeFailed implements decode.FailureRecorder
func (m *Metrics) DecodeFailed() {
	m.decodeFailuresTotal.Inc()
}

// MutationFinished records one mutation outcome.
func (m *Metrics) MutationFinished(resource, outcome string, took time.Duration) {
	m.mutationsTotal.WithLabelValues(resource, outcome).Inc()
	m.mutationDuration.WithLabelValues(resource).Observe(took.Seconds())
}

// Refetched records a scope refetch.
func (m *Metrics) Refetched(err error) {
	result := RefetchOK
	if err != nil {
		result = RefetchFailed
	}
	m.refetchesTotal.WithLabelValues(result).Inc()
}

// EventHandled records a published or consumed mutation event.
func (m *Metrics) EventHandled(direction string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(direction, status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Metrics endpoint listening", "addr", addr, log.FieldPath, metricsPath)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
