// Package metrics wires the cache, provider, and collector into
// Prometheus counters and histograms.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram hdcore exposes. The two
// labelled collector counters are updated through the typed methods
// below; the cache and provider fields are updated directly by their
// callers.
type Metrics struct {
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	DerivationBatches *prometheus.CounterVec
	DerivationLatency prometheus.Histogram
	CollectOutcomes   *prometheus.CounterVec
	NeglectedFactors  *prometheus.CounterVec
}

// New constructs Metrics and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdcore",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Factor-instances cache lookups fully satisfied from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdcore",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Factor-instances cache lookups that required derivation.",
		}),
		DerivationBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdcore",
			Subsystem: "provider",
			Name:      "derivation_batches_total",
			Help:      "Derivation batches dispatched to a KeyDerivationInteractor, by factor source kind.",
		}, []string{"kind"}),
		DerivationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hdcore",
			Subsystem: "provider",
			Name:      "derivation_latency_seconds",
			Help:      "Wall-clock latency of a single KeyDerivationInteractor.Derive call.",
			Buckets:   prometheus.DefBuckets,
		}),
		CollectOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdcore",
			Subsystem: "collector",
			Name:      "outcomes_total",
			Help:      "Terminal Collect outcomes, by successful/failed.",
		}, []string{"result"}),
		NeglectedFactors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdcore",
			Subsystem: "collector",
			Name:      "neglected_factors_total",
			Help:      "Factor sources neglected during a Collect run, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.DerivationBatches,
		m.DerivationLatency,
		m.CollectOutcomes,
		m.NeglectedFactors,
	)
	return m
}

// ObserveCollectOutcome increments the outcomes counter for a
// successful or failed terminal Collect result.
func (m *Metrics) ObserveCollectOutcome(successful bool) {
	if successful {
		m.CollectOutcomes.WithLabelValues("successful").Inc()
		return
	}
	m.CollectOutcomes.WithLabelValues("failed").Inc()
}

// ObserveNeglectedFactor increments the neglected-factors counter for
// reason.
func (m *Metrics) ObserveNeglectedFactor(reason string) {
	m.NeglectedFactors.WithLabelValues(reason).Inc()
}
