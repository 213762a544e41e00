package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomasbasham/storage-smoke/internal/smoke"
)

// Metrics holds the Prometheus collectors for smoke runs. Each instance owns
// its registry so several servers can coexist in one process.
type Metrics struct {
	Checks   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smoke_checks_total",
				Help: "Total number of smoke checks by outcome",
			},
			[]string{"check", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smoke_check_duration_seconds",
				Help:    "Smoke check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smoke_runs_in_flight",
			Help: "Number of smoke runs currently executing",
		}),
		registry: registry,
	}

	registry.MustRegister(m.Checks, m.Duration, m.InFlight)
	return m
}

// Observe records every check present in report.
func (m *Metrics) Observe(report *smoke.Report) {
	if r := report.Upload; r != nil {
		m.Checks.WithLabelValues(string(smoke.CheckUpload), outcome(r.Passed(), uploadFailure(r))).Inc()
		m.Duration.WithLabelValues(string(smoke.CheckUpload)).Observe(r.Duration.Seconds())
	}
	if r := report.List; r != nil {
		m.Checks.WithLabelValues(string(smoke.CheckList), outcome(r.Passed(), r.Failure)).Inc()
		m.Duration.WithLabelValues(string(smoke.CheckList)).Observe(r.Duration.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// outcome is "pass" or the failure kind.
func outcome(passed bool, f *smoke.Failure) string {
	if passed || f == nil {
		return "pass"
	}
	return string(f.Kind)
}

func uploadFailure(r *smoke.UploadResult) *smoke.Failure {
	if r.Upload.Failure != nil {
		return r.Upload.Failure
	}
	if r.Fetch != nil {
		return r.Fetch.Failure
	}
	return nil
}
