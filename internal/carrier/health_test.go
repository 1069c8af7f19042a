package carrier

import (
	"context"
	"testing"
	"time"
)

func TestHealthMonitor_UpdatesHealthNotBreaker(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	twilio.healthProbe = func() bool { return false }
	reg := mustRegistry(t, twilio)

	mon := NewHealthMonitor(reg, HealthMonitorConfig{Interval: time.Hour, ProbeTimeout: time.Second})
	mon.probeAll(context.Background())

	health, ok := reg.Health("twilio")
	if !ok {
		t.Fatal("expected health entry")
	}
	if health.Status != HealthUnhealthy {
		t.Fatalf("expected unhealthy status after failed probe, got %s", health.Status)
	}
	if reg.Breaker("twilio").Snapshot().ConsecutiveFailures != 0 {
		t.Fatal("probe failures must not affect the circuit breaker")
	}
}

func TestHealthMonitor_PanicTreatedAsFailure(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	twilio.healthProbe = func() bool { panic("boom") }
	reg := mustRegistry(t, twilio)

	mon := NewHealthMonitor(reg, HealthMonitorConfig{Interval: time.Hour, ProbeTimeout: time.Second})
	mon.probeAll(context.Background())

	health, _ := reg.Health("twilio")
	if health.Status != HealthUnhealthy {
		t.Fatalf("expected panic to be treated as probe failure, got %s", health.Status)
	}
}

func TestHealthMonitor_StartStop(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	reg := mustRegistry(t, twilio)

	mon := NewHealthMonitor(reg, HealthMonitorConfig{Interval: 5 * time.Millisecond, ProbeTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	mon.Stop()

	health, ok := reg.Health("twilio")
	if !ok || health.LastCheckAt.IsZero() {
		t.Fatal("expected at least one probe to have run before Stop returned")
	}
}
