// Package metrics exposes prometheus counters for training, generation and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector owns a private registry so several collectors can coexist in one process.
// A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	modelsTrained   *prometheus.CounterVec
	trainingWindows prometheus.Counter
	generations     *prometheus.CounterVec
	tokensGenerated prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector whose metric names are prefixed with namespace
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.modelsTrained = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "models_trained_total",
			Help:      "Total number of training runs",
		},
		[]string{"status"},
	)

	c.trainingWindows = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_windows_total",
			Help:      "Total number of n-gram windows counted during training",
		},
	)

	c.generations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of generation runs by terminal state",
		},
		[]string{"state"},
	)

	c.tokensGenerated = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_generated_total",
			Help:      "Total number of tokens appended by generation",
		},
	)

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.logger.Info("Metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(c.logger),
	})
}

// RecordTraining counts one training run
func (c *Collector) RecordTraining(status string, windows int) {
	if c == nil {
		return
	}
	c.modelsTrained.WithLabelValues(status).Inc()
	c.trainingWindows.Add(float64(windows))
}

// RecordGeneration counts one generation run and the tokens it appended
func (c *Collector) RecordGeneration(state string, generated int) {
	if c == nil {
		return
	}
	c.generations.WithLabelValues(state).Inc()
	c.tokensGenerated.Add(float64(generated))
}

// RecordHTTPRequest records a served HTTP request
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
