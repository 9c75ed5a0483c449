// Package metrics registers the subsystem's Prometheus instruments. The
// collectors live on an injected registry; exposing them over HTTP is the
// embedding application's call, not this layer's.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	connectAttempts *prometheus.CounterVec
	connectSeconds  prometheus.Histogram
	cacheReads      *prometheus.CounterVec
	cacheReloadFail prometheus.Counter
	broadcasts      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		connectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivewallet",
			Subsystem: "session",
			Name:      "connect_attempts_total",
			Help:      "Connect attempts by outcome kind.",
		}, []string{"outcome"}),
		connectSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hivewallet",
			Subsystem: "session",
			Name:      "connect_duration_seconds",
			Help:      "Wall time of connect attempts, including agent prompts.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		cacheReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivewallet",
			Subsystem: "cache",
			Name:      "reads_total",
			Help:      "Account cache reads by result (hit, stale, miss).",
		}, []string{"result"}),
		cacheReloadFail: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hivewallet",
			Subsystem: "cache",
			Name:      "reload_failures_total",
			Help:      "Background cache reloads that failed fail-soft.",
		}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hivewallet",
			Subsystem: "broadcast",
			Name:      "operations_total",
			Help:      "Sign-and-broadcast calls by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ConnectAttempt(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(outcome).Inc()
	m.connectSeconds.Observe(seconds)
}

func (m *Metrics) Broadcast(outcome string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(outcome).Inc()
}

// CacheRead and CacheReloadFailure satisfy cache.Observer.

func (m *Metrics) CacheRead(result string) {
	if m == nil {
		return
	}
	m.cacheReads.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheReloadFailure() {
	if m == nil {
		return
	}
	m.cacheReloadFail.Inc()
}
