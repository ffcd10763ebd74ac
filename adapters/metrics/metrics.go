// Package metrics provides Prometheus metrics collection for the teapot
// server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the teapot server.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Brew metrics
	BrewsInFlight        prometheus.Gauge
	AdmissionRejections  *prometheus.CounterVec
	TrafficWindowSeconds prometheus.Gauge

	// Notification metrics
	NotifyFailures prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector registered on the default
// registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "teapot",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "variant", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "teapot",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "variant"},
		),
		BrewsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "teapot",
				Name:      "brews_in_flight",
				Help:      "Number of brews currently in progress",
			},
		),
		AdmissionRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "teapot",
				Name:      "admission_rejections_total",
				Help:      "Total number of brew requests rejected by the traffic gate",
			},
			[]string{"variant"},
		),
		TrafficWindowSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "teapot",
				Name:      "traffic_window_seconds",
				Help:      "Number of live one-second buckets in the traffic window",
			},
		),
		NotifyFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "teapot",
				Name:      "notify_failures_total",
				Help:      "Total number of failed completion notifications",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "teapot",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "teapot",
				Name:      "config_reload_errors_total",
				Help:      "Total number of failed config reloads",
			},
		),
	}
}
