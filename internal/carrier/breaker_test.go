package carrier

import (
	"testing"
	"time"
)

func TestCircuitBreaker_VolumeGate(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{FailureThreshold: 2, VolumeThreshold: 10})
	now := time.Now()
	for i := 0; i < 5; i++ {
		cb.RecordFailure(now)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("breaker opened before volumeThreshold reached: %s", cb.State())
	}
}

func TestCircuitBreaker_ErrorRateOpens(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{
		FailureThreshold:      100, // never trip via consecutive failures
		VolumeThreshold:       4,
		ErrorThresholdPercent: 50,
		MonitoringPeriod:      time.Minute,
	})
	now := time.Now()
	cb.RecordSuccess(now)
	cb.RecordFailure(now)
	cb.RecordSuccess(now)
	cb.RecordFailure(now) // 4 requests, 50% error rate, volume met
	if cb.State() != BreakerOpen {
		t.Fatalf("expected OPEN via windowed error rate, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenBound(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{HalfOpenMaxCalls: 2, RecoveryTimeout: time.Millisecond})
	now := time.Now()
	cb.ForceOpen(now.Add(-time.Hour))

	probeNow := time.Now()
	if !cb.TryEnter(probeNow) {
		t.Fatal("expected first half-open probe to be allowed")
	}
	if !cb.TryEnter(probeNow) {
		t.Fatal("expected second half-open probe to be allowed")
	}
	if cb.TryEnter(probeNow) {
		t.Fatal("expected third concurrent half-open probe to be rejected (bound=2)")
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{HalfOpenMaxCalls: 3, RecoveryTimeout: time.Minute})
	past := time.Now().Add(-time.Hour)
	cb.ForceOpen(past)

	now := time.Now()
	if !cb.TryEnter(now) {
		t.Fatal("expected half-open probe to be allowed")
	}
	cb.RecordFailure(now)
	if cb.State() != BreakerOpen {
		t.Fatalf("expected re-open on half-open failure, got %s", cb.State())
	}
	if !cb.NextAttemptAt().After(now) {
		t.Fatalf("expected nextAttemptAt to be reset into the future")
	}
}

func TestCircuitBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{HalfOpenMaxCalls: 2, RecoveryTimeout: time.Minute})
	cb.ForceOpen(time.Now().Add(-time.Hour))

	now := time.Now()
	for i := 0; i < 2; i++ {
		if !cb.TryEnter(now) {
			t.Fatalf("probe %d rejected unexpectedly", i)
		}
		cb.RecordSuccess(now)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected CLOSED after halfOpenMaxCalls successes, got %s", cb.State())
	}
}

func TestCircuitBreaker_ForceCloseAndReset(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{FailureThreshold: 1, VolumeThreshold: 1})
	now := time.Now()
	cb.RecordFailure(now)
	if cb.State() != BreakerOpen {
		t.Fatalf("setup: expected OPEN")
	}
	cb.ForceClose()
	if cb.State() != BreakerClosed {
		t.Fatalf("ForceClose did not close breaker")
	}
	cb.Reset()
	snap := cb.Snapshot()
	if snap.TotalRequests != 0 || snap.ConsecutiveFailures != 0 {
		t.Fatalf("Reset did not clear counters: %+v", snap)
	}
}

func TestCircuitBreaker_StateChangeNotification(t *testing.T) {
	var transitions [][2]BreakerState
	cb := NewCircuitBreaker("p", BreakerConfig{
		FailureThreshold: 1,
		VolumeThreshold:  1,
		OnStateChange: func(providerID string, from, to BreakerState) {
			transitions = append(transitions, [2]BreakerState{from, to})
		},
	})
	cb.RecordFailure(time.Now())
	if len(transitions) != 1 || transitions[0][1] != BreakerOpen {
		t.Fatalf("expected one CLOSED->OPEN transition, got %+v", transitions)
	}
}

func TestCircuitBreaker_MonitoringWindowExpires(t *testing.T) {
	cb := NewCircuitBreaker("p", BreakerConfig{
		FailureThreshold:      100,
		VolumeThreshold:       3,
		ErrorThresholdPercent: 50,
		MonitoringPeriod:      10 * time.Millisecond,
	})
	base := time.Now()
	cb.RecordFailure(base)
	cb.RecordFailure(base.Add(time.Millisecond))
	// Old failures should have aged out of the window by the time these
	// requests land, so the windowed rate (1 failure in 3) no longer trips
	// the breaker; with the old failures counted it would be 3 in 5.
	later := base.Add(time.Hour)
	cb.RecordSuccess(later)
	cb.RecordSuccess(later)
	cb.RecordFailure(later)
	if cb.State() != BreakerClosed {
		t.Fatalf("expected CLOSED once old failures expired from window, got %s", cb.State())
	}
}
