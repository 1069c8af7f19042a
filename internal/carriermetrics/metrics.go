// Package carriermetrics exposes the dispatch layer's Prometheus
// instrumentation: per-provider dispatch counts and latency, circuit breaker
// state, and cache hit/miss counters, adapted from the teacher's centralized
// Metrics struct.
package carriermetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// Metrics is a centralized registration point for all dispatch-layer
// instruments. Construct one with New and wire it into a Dispatcher's
// OnDispatch callback and a CircuitBreaker's OnStateChange callback.
type Metrics struct {
	// DispatchCounter counts dispatched calls by provider, operation, and
	// outcome (success|error).
	DispatchCounter *prometheus.CounterVec

	// DispatchDuration measures per-call latency in seconds.
	// Labels: provider, operation
	DispatchDuration *prometheus.HistogramVec

	// BreakerState is a gauge of 0=closed, 1=half_open, 2=open per provider.
	BreakerState *prometheus.GaugeVec

	// BreakerTransitions counts state transitions by provider and target state.
	BreakerTransitions *prometheus.CounterVec

	// CacheLookups counts search cache lookups by outcome (hit|miss).
	CacheLookups *prometheus.CounterVec

	// ProviderUptime mirrors ProviderHealth.UptimePercent per provider, for
	// dashboards that want the raw gauge rather than deriving it from the
	// dispatch counters.
	ProviderUptime *prometheus.GaugeVec
}

// New creates and registers every instrument against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the process
// default registry; pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	factory := prometheus.WrapRegistererWithPrefix("carrierdispatch_", reg)

	dispatchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_total", Help: "Total dispatched provider calls by provider, operation, and outcome"},
		[]string{"provider", "operation", "outcome"},
	)
	dispatchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Duration of dispatched provider calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "breaker_state", Help: "Circuit breaker state per provider: 0=closed, 1=half_open, 2=open"},
		[]string{"provider"},
	)
	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "breaker_transitions_total", Help: "Circuit breaker state transitions by provider and target state"},
		[]string{"provider", "state"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_lookups_total", Help: "Search cache lookups by outcome"},
		[]string{"outcome"},
	)
	providerUptime := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "provider_uptime_percent", Help: "Rolling uptime percent per provider"},
		[]string{"provider"},
	)

	for _, c := range []prometheus.Collector{dispatchCounter, dispatchDuration, breakerState, breakerTransitions, cacheLookups, providerUptime} {
		factory.MustRegister(c)
	}

	return &Metrics{
		DispatchCounter:    dispatchCounter,
		DispatchDuration:   dispatchDuration,
		BreakerState:       breakerState,
		BreakerTransitions: breakerTransitions,
		CacheLookups:       cacheLookups,
		ProviderUptime:     providerUptime,
	}
}

// ObserveDispatch is an OnDispatch-shaped callback: wire it into
// carrier.DispatcherConfig.OnDispatch to record every dispatched call.
func (m *Metrics) ObserveDispatch(providerID, operation string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.DispatchCounter.WithLabelValues(providerID, operation, outcome).Inc()
	m.DispatchDuration.WithLabelValues(providerID, operation).Observe(duration.Seconds())
}

func breakerStateValue(s carrier.BreakerState) float64 {
	switch s {
	case carrier.BreakerHalfOpen:
		return 1
	case carrier.BreakerOpen:
		return 2
	default:
		return 0
	}
}

// ObserveBreakerTransition is an OnStateChange-shaped callback: wire it into
// carrier.BreakerConfig.OnStateChange to track breaker state per provider.
func (m *Metrics) ObserveBreakerTransition(providerID string, from, to carrier.BreakerState) {
	m.BreakerState.WithLabelValues(providerID).Set(breakerStateValue(to))
	m.BreakerTransitions.WithLabelValues(providerID, string(to)).Inc()
}

// ObserveCacheHit records a search-cache hit.
func (m *Metrics) ObserveCacheHit() { m.CacheLookups.WithLabelValues("hit").Inc() }

// ObserveCacheMiss records a search-cache miss.
func (m *Metrics) ObserveCacheMiss() { m.CacheLookups.WithLabelValues("miss").Inc() }

// SetProviderUptime updates the uptime gauge for a provider.
func (m *Metrics) SetProviderUptime(providerID string, percent float64) {
	m.ProviderUptime.WithLabelValues(providerID).Set(percent)
}
