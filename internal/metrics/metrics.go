// Package metrics provides Prometheus metrics for the CMS admin core.
package metrics

import (
	"net/http"
	"time"

	"github.com/headless-cms-admin/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cms"

// Collector holds all Prometheus metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Service metrics
	OperationsTotal       *prometheus.CounterVec
	StoreWritesTotal      *prometheus.CounterVec
	ScheduledPublishTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a collector on its own registry, with Go runtime and process
// collectors attached.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates a collector registering into reg
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of service operations by outcome",
			},
			[]string{"service", "op", "result"},
		),
		StoreWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_writes_total",
				Help:      "Total number of persisted collection writes",
			},
			[]string{"collection"},
		),
		ScheduledPublishTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_publish_total",
				Help:      "Total number of entries published by the scheduler",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of admin API requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Admin API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
	}
}

// Op records the outcome of a service operation
func (c *Collector) Op(service, op string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.OperationsTotal.WithLabelValues(service, op, result).Inc()
}

// ObserveChange counts a persisted repository change. It has the signature
// expected by repository.Repositories.Subscribe.
func (c *Collector) ObserveChange(change repository.Change) {
	if c == nil {
		return
	}
	c.StoreWritesTotal.WithLabelValues(change.Collection).Inc()
}

// ScheduledPublished counts entries published by the scheduler
func (c *Collector) ScheduledPublished(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ScheduledPublishTotal.Add(float64(n))
}

// HTTPRequest records one served request
func (c *Collector) HTTPRequest(method, path, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Registry returns the registry the collector writes to
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
