// Package metrics exposes Prometheus collectors for the web server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server instance.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	logins *prometheus.CounterVec
}

// New creates and registers the collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),

		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Total number of RPC calls by method and result code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Duration of RPC calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method"}),

		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.rpcCalls,
		m.rpcDuration,
		m.logins,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one finished request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordRPC records one dispatched call. code is "OK" or the client error code.
func (m *Metrics) RecordRPC(method, code string, d time.Duration) {
	m.rpcCalls.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordLogin records a login attempt; outcome is "success" or a client error code.
func (m *Metrics) RecordLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}
