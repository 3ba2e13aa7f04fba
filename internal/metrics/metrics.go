// Package metrics exposes Prometheus instrumentation for chronicle resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "obschronicle"

// #region metrics
// Metrics holds the collectors of one process. Each instance owns its own
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	// ResolutionsTotal counts resolve calls. Labels: outcome (ok or a Classify kind).
	ResolutionsTotal *prometheus.CounterVec
	// ResolveSeconds observes the wall time of one resolve call.
	ResolveSeconds prometheus.Histogram
	// StepsApplied observes how many chronicle actions a resolve call replayed.
	StepsApplied prometheus.Histogram
	// ChroniclesLoaded is the number of documents currently held by the library.
	ChroniclesLoaded prometheus.Gauge
	// ReloadsTotal counts directory reloads. Labels: status (ok, error).
	ReloadsTotal *prometheus.CounterVec
	// CacheHitsTotal counts resolve calls served from the one-entry memo.
	CacheHitsTotal prometheus.Counter
}

// New creates and registers every collector on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ResolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Window resolutions by outcome.",
		}, []string{"outcome"}),
		ResolveSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time spent validating, replaying and resolving one chronicle.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		StepsApplied: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_steps_applied",
			Help:      "Chronicle actions applied per resolution.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		ChroniclesLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chronicles_loaded",
			Help:      "Chronicle documents currently loaded.",
		}),
		ReloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_reloads_total",
			Help:      "Chronicle directory reloads by status.",
		}, []string{"status"}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_cache_hits_total",
			Help:      "Resolutions served from the last-observer memo.",
		}),
	}
}

// #endregion metrics

// #region observe
// ObserveResolve records one resolve call. outcome is "ok" on success.
// A nil receiver is a no-op.
func (m *Metrics) ObserveResolve(outcome string, elapsed time.Duration, steps int) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
	m.ResolveSeconds.Observe(elapsed.Seconds())
	if outcome == "ok" {
		m.StepsApplied.Observe(float64(steps))
	}
}

// ObserveReload records a directory reload and the resulting document count.
func (m *Metrics) ObserveReload(err error, loaded int) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReloadsTotal.WithLabelValues("ok").Inc()
	m.ChroniclesLoaded.Set(float64(loaded))
}

// CacheHit records a memo hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// #endregion observe
