// Package metrics exposes Prometheus instrumentation for the HTTP API and
// the simulation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/portfolio"
)

const namespace = "sextant"

// Registry owns a private Prometheus registry, so tests and multiple
// servers never collide on the global one.
type Registry struct {
	*prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	signalsGenerated *prometheus.CounterVec
	tradesTotal      *prometheus.CounterVec
	jobsActive       *prometheus.GaugeVec
	notifications    *prometheus.CounterVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		Registry: reg,

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status class.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),

		backtestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtests_total",
			Help:      "Backtest runs by outcome.",
		}, []string{"status"}),
		backtestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Backtest duration, data fetch included.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		signalsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_generated_total",
			Help:      "Strategy signals generated during simulations.",
		}, []string{"strategy", "direction"}),
		tradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Simulated trades by side.",
		}, []string{"side"}),
		jobsActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Queued or running API jobs by type.",
		}, []string{"type"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Run notifications by channel and delivery outcome.",
		}, []string{"notifier", "status"}),
	}
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func (r *Registry) InFlightInc() { r.httpRequestsInFlight.Inc() }
func (r *Registry) InFlightDec() { r.httpRequestsInFlight.Dec() }

func (r *Registry) RecordSignal(strategy, direction string) {
	r.signalsGenerated.WithLabelValues(strategy, direction).Inc()
}

func (r *Registry) RecordTrade(side string) {
	r.tradesTotal.WithLabelValues(side).Inc()
}

// RecordBacktest records a finished backtest; status is "success" or
// "failed".
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// RecordNotification counts one delivery attempt.
func (r *Registry) RecordNotification(notifier string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	r.notifications.WithLabelValues(notifier, status).Inc()
}

// SignalGenerated and TradeExecuted let the registry observe simulations.
func (r *Registry) SignalGenerated(sig core.Signal) {
	r.RecordSignal(sig.Strategy, string(sig.Direction))
}

func (r *Registry) TradeExecuted(t portfolio.Trade) {
	r.RecordTrade(string(t.Side))
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return string(rune('0'+status/100)) + "xx"
}
