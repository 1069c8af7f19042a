package carrier

import (
	"sync"
	"time"
)

// BreakerState is one of CLOSED, OPEN, HALF_OPEN, per SPEC_FULL.md §4.4.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerConfig configures a CircuitBreaker. Zero values are replaced by the
// defaults from spec.md §4.4.
type BreakerConfig struct {
	FailureThreshold      int
	RecoveryTimeout       time.Duration
	MonitoringPeriod      time.Duration
	VolumeThreshold       int
	ErrorThresholdPercent float64
	HalfOpenMaxCalls      int

	// OnStateChange is invoked synchronously, while the breaker's lock is
	// held, whenever the breaker transitions state, including forced
	// transitions. A callback that calls back into the same breaker blocks.
	OnStateChange func(providerID string, from, to BreakerState)
}

// DefaultBreakerConfig returns the defaults named in spec.md §4.4.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:      5,
		RecoveryTimeout:       60 * time.Second,
		MonitoringPeriod:      60 * time.Second,
		VolumeThreshold:       10,
		ErrorThresholdPercent: 50,
		HalfOpenMaxCalls:      3,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = d.RecoveryTimeout
	}
	if c.MonitoringPeriod <= 0 {
		c.MonitoringPeriod = d.MonitoringPeriod
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = d.VolumeThreshold
	}
	if c.ErrorThresholdPercent <= 0 {
		c.ErrorThresholdPercent = d.ErrorThresholdPercent
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	return c
}

type windowedRecord struct {
	at      time.Time
	success bool
}

// CircuitBreaker is a per-provider failure-counting state machine with a
// bounded half-open recovery probe. It is guarded by a single mutex, per
// SPEC_FULL.md §5 ("avoid scattering mutexes across fields").
type CircuitBreaker struct {
	providerID string
	config     BreakerConfig

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	totalRequests       int64
	windowedSuccesses   int
	windowedFailures    int
	lastFailureAt       time.Time
	nextAttemptAt       time.Time
	halfOpenInFlight    int
	halfOpenSuccesses   int
	history             []windowedRecord
}

// NewCircuitBreaker creates a CLOSED breaker for one provider.
func NewCircuitBreaker(providerID string, config BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		providerID: providerID,
		config:     config.withDefaults(),
		state:      BreakerClosed,
	}
}

// State returns the current state without side effects (no time-based
// transition check — CanSelect/TryEnter perform that, per
// SPEC_FULL.md §9's "on-demand check at selection time" note).
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CanSelect reports whether this provider is eligible for the Selector's
// output right now, performing the OPEN→HALF_OPEN transition if
// nextAttemptAt has passed (spec.md §4.3 step 2). It does not reserve a
// half-open concurrency slot — that happens at invocation time via
// TryEnter, so that listing a provider as a candidate never by itself
// consumes part of the halfOpenMaxCalls budget (invariant 8 bounds
// concurrent in-flight calls, not candidate listings).
func (cb *CircuitBreaker) CanSelect(now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if !now.Before(cb.nextAttemptAt) {
			cb.transitionLocked(BreakerHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// TryEnter reserves the right to actually invoke the adapter, to be called
// immediately before the call. In CLOSED it always succeeds. In OPEN it
// performs the same on-demand transition as CanSelect, then behaves as
// HALF_OPEN. In HALF_OPEN it reserves one of halfOpenMaxCalls concurrent
// slots, returning false if none remain (invariant 8). The caller must pair
// a true result with exactly one of RecordSuccess, RecordFailure, or
// ReleaseWithoutRecording.
func (cb *CircuitBreaker) TryEnter(now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if now.Before(cb.nextAttemptAt) {
			return false
		}
		cb.transitionLocked(BreakerHalfOpen)
		fallthrough
	case BreakerHalfOpen:
		if cb.halfOpenInFlight < cb.config.HalfOpenMaxCalls {
			cb.halfOpenInFlight++
			return true
		}
		return false
	default:
		return true
	}
}

// NextAttemptAt returns the time at which an OPEN breaker becomes eligible
// for a half-open probe.
func (cb *CircuitBreaker) NextAttemptAt() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.nextAttemptAt
}

// recordOutcome is called once per dispatched call with whether it
// succeeded. §9's Open Question is resolved as: thrown errors advance the
// breaker, business-failure statuses do not. A call that returned a
// business-failure status is a successful call here (the Dispatcher records
// every Success outcome with success=true).
func (cb *CircuitBreaker) recordOutcome(now time.Time, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.pruneHistoryLocked(now)
	cb.history = append(cb.history, windowedRecord{at: now, success: success})
	if success {
		cb.windowedSuccesses++
	} else {
		cb.windowedFailures++
	}

	if cb.state == BreakerHalfOpen {
		cb.halfOpenInFlight--
		if cb.halfOpenInFlight < 0 {
			cb.halfOpenInFlight = 0
		}
		if !success {
			cb.transitionLocked(BreakerOpen)
			cb.nextAttemptAt = now.Add(cb.config.RecoveryTimeout)
			return
		}
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenMaxCalls {
			cb.transitionLocked(BreakerClosed)
		}
		return
	}

	// CLOSED
	if success {
		cb.consecutiveFailures = 0
		return
	}

	cb.consecutiveFailures++
	cb.lastFailureAt = now

	if cb.openConditionsMetLocked() {
		cb.transitionLocked(BreakerOpen)
		cb.nextAttemptAt = now.Add(cb.config.RecoveryTimeout)
	}
}

// RecordSuccess records a successful dispatched call against the breaker.
func (cb *CircuitBreaker) RecordSuccess(now time.Time) { cb.recordOutcome(now, true) }

// RecordFailure records a failed dispatched call (a thrown/retryable error,
// never a business-failure status) against the breaker.
func (cb *CircuitBreaker) RecordFailure(now time.Time) { cb.recordOutcome(now, false) }

// ReleaseWithoutRecording releases a reserved half-open slot without
// affecting failure counters — used when a caller-initiated cancellation
// aborts the call before any outcome is known (SPEC_FULL.md §5).
func (cb *CircuitBreaker) ReleaseWithoutRecording() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == BreakerHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}
}

func (cb *CircuitBreaker) openConditionsMetLocked() bool {
	if cb.totalRequests < int64(cb.config.VolumeThreshold) {
		return false
	}
	if cb.consecutiveFailures >= cb.config.FailureThreshold {
		return true
	}
	total := cb.windowedSuccesses + cb.windowedFailures
	if total == 0 {
		return false
	}
	errRate := float64(cb.windowedFailures) / float64(total) * 100
	return errRate >= cb.config.ErrorThresholdPercent
}

func (cb *CircuitBreaker) pruneHistoryLocked(now time.Time) {
	cutoff := now.Add(-cb.config.MonitoringPeriod)
	i := 0
	for i < len(cb.history) && cb.history[i].at.Before(cutoff) {
		if cb.history[i].success {
			cb.windowedSuccesses--
		} else {
			cb.windowedFailures--
		}
		i++
	}
	if i > 0 {
		cb.history = cb.history[i:]
	}
}

func (cb *CircuitBreaker) transitionLocked(to BreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == BreakerHalfOpen {
		cb.halfOpenInFlight = 0
		cb.halfOpenSuccesses = 0
	}
	if to == BreakerClosed {
		cb.consecutiveFailures = 0
		cb.halfOpenInFlight = 0
		cb.halfOpenSuccesses = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.providerID, from, to)
	}
}

// ForceOpen forces the breaker OPEN for operator control; emits a
// state-change notification.
func (cb *CircuitBreaker) ForceOpen(now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(BreakerOpen)
	cb.nextAttemptAt = now.Add(cb.config.RecoveryTimeout)
}

// ForceClose forces the breaker CLOSED for operator control.
func (cb *CircuitBreaker) ForceClose() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(BreakerClosed)
}

// Reset clears all counters and returns the breaker to CLOSED.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(BreakerClosed)
	cb.consecutiveFailures = 0
	cb.totalRequests = 0
	cb.windowedSuccesses = 0
	cb.windowedFailures = 0
	cb.history = nil
	cb.lastFailureAt = time.Time{}
	cb.nextAttemptAt = time.Time{}
}

// Snapshot returns a point-in-time copy of the breaker's countable state,
// suitable for exposing via metrics or diagnostics without leaking the lock.
type BreakerSnapshot struct {
	State               BreakerState
	ConsecutiveFailures int
	TotalRequests       int64
	WindowedSuccesses   int
	WindowedFailures    int
	LastFailureAt       time.Time
	NextAttemptAt       time.Time
	HalfOpenInFlight    int
}

// Snapshot returns the breaker's current state.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		TotalRequests:       cb.totalRequests,
		WindowedSuccesses:   cb.windowedSuccesses,
		WindowedFailures:    cb.windowedFailures,
		LastFailureAt:       cb.lastFailureAt,
		NextAttemptAt:       cb.nextAttemptAt,
		HalfOpenInFlight:    cb.halfOpenInFlight,
	}
}
