// Package metrics provides Prometheus metrics collection for specgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "specgate"

// Collector holds all Prometheus metrics for specgate.
type Collector struct {
	// Registry metrics
	Registrations    *prometheus.CounterVec
	RegisteredRoutes *prometheus.GaugeVec
	Lookups          *prometheus.CounterVec

	// Command metrics
	CommandValidationFailures *prometheus.CounterVec

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		Registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Operation registrations by method and result",
			},
			[]string{"method", "result"},
		),
		RegisteredRoutes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registered_routes",
				Help:      "Number of path templates bound per method, introspection routes included",
			},
			[]string{"method"},
		),
		Lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Route lookups by method and result",
			},
			[]string{"method", "result"},
		),
		CommandValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_validation_failures_total",
				Help:      "Commands rejected by payload validation",
			},
			[]string{"command"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// The helpers below accept a nil receiver so callers can hold an optional
// collector without checking it.

// ObserveRegistration counts a registration attempt for a method.
func (c *Collector) ObserveRegistration(method string, err error) {
	if c == nil {
		return
	}
	c.Registrations.WithLabelValues(method, result(err == nil, "ok", "error")).Inc()
}

// SetRoutes records the number of templates bound for a method.
func (c *Collector) SetRoutes(method string, n int) {
	if c == nil {
		return
	}
	c.RegisteredRoutes.WithLabelValues(method).Set(float64(n))
}

// ObserveLookup counts a route lookup. An empty method is labelled "any".
func (c *Collector) ObserveLookup(method string, found bool) {
	if c == nil {
		return
	}
	if method == "" {
		method = "any"
	}
	c.Lookups.WithLabelValues(method, result(found, "hit", "miss")).Inc()
}

// ObserveCommandFailure counts a rejected command.
func (c *Collector) ObserveCommandFailure(command string) {
	if c == nil {
		return
	}
	c.CommandValidationFailures.WithLabelValues(command).Inc()
}

// ObserveRequest records a finished request.
func (c *Collector) ObserveRequest(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	label := StatusLabel(status)
	c.RequestsTotal.WithLabelValues(method, label).Inc()
	c.RequestDuration.WithLabelValues(method, label).Observe(d.Seconds())
}

// ObserveReload records the outcome of a config reload.
func (c *Collector) ObserveReload(err error, at time.Time) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// StatusLabel returns a string label for the status code.
func StatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
