package carrier

import (
	"sync"
	"time"
)

// providerState bundles the health and metrics owned by the dispatcher
// subsystem for one provider behind a single lock, per SPEC_FULL.md §9's
// "avoid scattering mutexes across fields" guidance. The circuit breaker is
// kept as its own lock-bearing component (mirroring the teacher's
// CircuitBreakerRegistry, where each breaker is independently safe for
// concurrent use) rather than folded in here, since its state machine has
// its own invariants to protect in isolation.
type providerState struct {
	mu      sync.Mutex
	health  ProviderHealth
	metrics ProviderMetrics
	breaker *CircuitBreaker
}

func newProviderState(providerID string, bc BreakerConfig) *providerState {
	return &providerState{
		health:  ProviderHealth{Status: HealthHealthy, UptimePercent: 100},
		breaker: NewCircuitBreaker(providerID, bc),
	}
}

// Health returns a copy of the current health snapshot.
func (s *providerState) Health() ProviderHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// Metrics returns a copy of the current metrics snapshot.
func (s *providerState) Metrics() ProviderMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// recordDispatchOutcome updates metrics and the uptime component of health
// for a dispatched call, per §3: success increments uptime by +0.1 clamped
// at 100; failure decrements by -1.0 clamped at 0.
func (s *providerState) recordDispatchOutcome(success bool, responseTime time.Duration, errMsg string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalRequests++
	rtMs := float64(responseTime.Milliseconds())
	if s.metrics.TotalRequests == 1 {
		s.metrics.AvgResponseTimeMs = rtMs
	} else {
		n := float64(s.metrics.TotalRequests)
		s.metrics.AvgResponseTimeMs = s.metrics.AvgResponseTimeMs + (rtMs-s.metrics.AvgResponseTimeMs)/n
	}

	if success {
		s.metrics.SuccessfulRequests++
		s.metrics.LastSuccessAt = now
		s.health.UptimePercent = clampPercent(s.health.UptimePercent + 0.1)
	} else {
		s.metrics.FailedRequests++
		s.metrics.LastError = errMsg
		s.health.UptimePercent = clampPercent(s.health.UptimePercent - 1.0)
	}

	if s.metrics.TotalRequests > 0 {
		s.metrics.ErrorRatePercent = float64(s.metrics.FailedRequests) / float64(s.metrics.TotalRequests) * 100
	}
}

// recordProbe applies a health-monitor probe result. Probe outcomes never
// touch the circuit breaker (SPEC_FULL.md §4.7).
func (s *providerState) recordProbe(ok bool, responseTime time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.LastCheckAt = now
	s.health.LastResponseTimeMs = responseTime.Milliseconds()
	if ok {
		s.health.Status = HealthHealthy
		s.health.UptimePercent = clampPercent(s.health.UptimePercent + 0.1)
	} else {
		s.health.Status = HealthUnhealthy
		s.health.UptimePercent = clampPercent(s.health.UptimePercent - 1.0)
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
