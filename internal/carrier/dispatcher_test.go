package carrier

import (
	"context"
	"testing"
	"time"
)

func mustRegistry(t *testing.T, adapters ...Adapter) *Registry {
	t.Helper()
	r, err := NewRegistryFromAdapters(adapters, DefaultBreakerConfig())
	if err != nil {
		t.Fatalf("NewRegistryFromAdapters: %v", err)
	}
	return r
}

// S1 — Failover success.
func TestDispatcher_FailoverSuccess(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	twilio.searchFn = func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Retryable[NumberSearchResponse](NewTransportError("twilio", nil))
	}
	bandwidth := newStubAdapter(descriptor("bandwidth", 2, FeatureNumberSearch))
	bandwidth.searchFn = func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Success(NumberSearchResponse{Provider: "bandwidth", Numbers: []PhoneNumber{{Number: "+12125551234"}}, SearchID: "s1"})
	}

	reg := mustRegistry(t, twilio, bandwidth)
	d := NewDispatcher(reg, DispatcherConfig{})

	resp, err := d.SearchNumbers(context.Background(), NumberSearchRequest{CountryCode: "US", AreaCode: "212", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Provider != "bandwidth" || len(resp.Numbers) != 1 || resp.Cached {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := reg.Breaker("twilio").Snapshot().ConsecutiveFailures; got != 1 {
		t.Fatalf("twilio consecutiveFailures = %d, want 1", got)
	}
}

// S2 — All fail.
func TestDispatcher_AllProvidersFailed(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	bandwidth := newStubAdapter(descriptor("bandwidth", 2, FeatureNumberSearch))
	failFn := func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Retryable[NumberSearchResponse](NewTransportError("x", nil))
	}
	twilio.searchFn = failFn
	bandwidth.searchFn = failFn

	reg := mustRegistry(t, twilio, bandwidth)
	d := NewDispatcher(reg, DispatcherConfig{})

	_, err := d.SearchNumbers(context.Background(), NumberSearchRequest{CountryCode: "US"})
	var allFailed *AllProvidersFailedError
	if err == nil {
		t.Fatal("expected AllProvidersFailedError")
	}
	if ok := asAllFailed(err, &allFailed); !ok {
		t.Fatalf("expected *AllProvidersFailedError, got %T: %v", err, err)
	}
	if reg.Breaker("twilio").Snapshot().ConsecutiveFailures != 1 {
		t.Fatalf("twilio failures not recorded")
	}
	if reg.Breaker("bandwidth").Snapshot().ConsecutiveFailures != 1 {
		t.Fatalf("bandwidth failures not recorded")
	}
}

func asAllFailed(err error, out **AllProvidersFailedError) bool {
	e, ok := err.(*AllProvidersFailedError)
	if ok {
		*out = e
	}
	return ok
}

// S3 — Breaker opens after repeated failures.
func TestDispatcher_BreakerOpensAfterFailures(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	twilio.searchFn = func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Retryable[NumberSearchResponse](NewTransportError("twilio", nil))
	}
	reg := mustRegistry(t, twilio)
	d := NewDispatcher(reg, DispatcherConfig{})

	for i := 0; i < 10; i++ {
		_, _ = d.SearchNumbers(context.Background(), NumberSearchRequest{CountryCode: "US"})
	}

	snap := reg.Breaker("twilio").Snapshot()
	if snap.State != BreakerOpen {
		t.Fatalf("expected breaker OPEN, got %s", snap.State)
	}
	wantNext := time.Now().Add(60 * time.Second)
	if snap.NextAttemptAt.Before(wantNext.Add(-5*time.Second)) || snap.NextAttemptAt.After(wantNext.Add(5*time.Second)) {
		t.Fatalf("nextAttemptAt = %v, want ~%v", snap.NextAttemptAt, wantNext)
	}
}

// S4 — Half-open recovery.
func TestDispatcher_HalfOpenRecovery(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	reg := mustRegistry(t, twilio)
	breaker := reg.Breaker("twilio")

	// Force OPEN with a nextAttemptAt already in the past relative to the
	// real clock the dispatcher will use.
	breaker.ForceOpen(time.Now().Add(-2 * time.Hour))
	if breaker.Snapshot().State != BreakerOpen {
		t.Fatalf("setup: expected breaker OPEN")
	}

	twilio.searchFn = func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Success(NumberSearchResponse{Provider: "twilio", SearchID: "s"})
	}
	d := NewDispatcher(reg, DispatcherConfig{})

	resp, err := d.SearchNumbers(context.Background(), NumberSearchRequest{CountryCode: "US"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Provider != "twilio" {
		t.Fatalf("expected twilio response, got %+v", resp)
	}
	if breaker.Snapshot().State != BreakerHalfOpen {
		t.Fatalf("expected breaker HALF_OPEN after first probe success, got %s", breaker.Snapshot().State)
	}

	for i := 0; i < 2; i++ {
		if _, err := d.SearchNumbers(context.Background(), NumberSearchRequest{CountryCode: "US", Pattern: "x" + time.Now().String()}); err != nil {
			t.Fatalf("unexpected error on probe %d: %v", i, err)
		}
	}
	if breaker.Snapshot().State != BreakerClosed {
		t.Fatalf("expected breaker CLOSED after halfOpenMaxCalls successes, got %s", breaker.Snapshot().State)
	}
}

// S5 — Unhealthy excluded.
func TestDispatcher_UnhealthyExcluded(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	bandwidth := newStubAdapter(descriptor("bandwidth", 2, FeatureNumberSearch))
	bandwidth.searchFn = func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Success(NumberSearchResponse{Provider: "bandwidth", SearchID: "s"})
	}
	reg := mustRegistry(t, twilio, bandwidth)

	state := reg.stateFor("twilio")
	state.mu.Lock()
	state.health.UptimePercent = 50
	state.health.Status = HealthHealthy
	state.mu.Unlock()

	d := NewDispatcher(reg, DispatcherConfig{})
	resp, err := d.SearchNumbers(context.Background(), NumberSearchRequest{CountryCode: "US"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Provider != "bandwidth" {
		t.Fatalf("expected bandwidth (twilio unhealthy), got %+v", resp)
	}
	if twilio.SearchCalls() != 0 {
		t.Fatalf("twilio should not have been invoked")
	}
}

// S6 — Capability filtering.
func TestDispatcher_CapabilityFiltering(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch)) // no porting
	bandwidth := newStubAdapter(descriptor("bandwidth", 2, FeaturePorting))
	bandwidth.portFn = func(PortingRequest) Outcome[PortingResponse] {
		return Success(PortingResponse{PortingID: "p1", Status: PortingSubmitted})
	}
	reg := mustRegistry(t, twilio, bandwidth)
	d := NewDispatcher(reg, DispatcherConfig{})

	resp, err := d.PortNumber(context.Background(), PortingRequest{PhoneNumber: "+12125551234", AccountNumber: "a", PIN: "1", AuthorizedName: "n", ServiceAddress: "s"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.PortingID != "p1" {
		t.Fatalf("unexpected porting response: %+v", resp)
	}
	if twilio.portCalls != 0 {
		t.Fatalf("twilio should not be invoked for porting (lacks capability)")
	}
}

// S7 — Cache hit.
func TestDispatcher_CacheHit(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	twilio.searchFn = func(NumberSearchRequest) Outcome[NumberSearchResponse] {
		return Success(NumberSearchResponse{Provider: "twilio", SearchID: "abc", Numbers: []PhoneNumber{{Number: "+12125551234"}}})
	}
	reg := mustRegistry(t, twilio)
	d := NewDispatcher(reg, DispatcherConfig{})

	req := NumberSearchRequest{CountryCode: "US", AreaCode: "212"}
	first, err := d.SearchNumbers(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Fatalf("first call should be a miss")
	}

	second, err := d.SearchNumbers(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Fatalf("second call should be a hit")
	}
	if second.SearchID != first.SearchID {
		t.Fatalf("searchId mismatch: %q vs %q", second.SearchID, first.SearchID)
	}
	if twilio.SearchCalls() != 1 {
		t.Fatalf("adapter should only be called once, got %d", twilio.SearchCalls())
	}
}

// Invariant 4 — non-idempotent pinning: exactly one adapter invoked.
func TestDispatcher_ReserveIsPinned(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	bandwidth := newStubAdapter(descriptor("bandwidth", 2, FeatureNumberSearch))
	reg := mustRegistry(t, twilio, bandwidth)
	d := NewDispatcher(reg, DispatcherConfig{})

	_, err := d.ReserveNumber(context.Background(), ReservationRequest{PhoneNumber: "+12125551234", ProviderID: "twilio", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twilioMetrics, _ := reg.Metrics("twilio")
	bandwidthMetrics, _ := reg.Metrics("bandwidth")
	if twilioMetrics.TotalRequests != 1 || bandwidthMetrics.TotalRequests != 0 {
		t.Fatalf("expected exactly one call to twilio and none to bandwidth, got %d and %d", twilioMetrics.TotalRequests, bandwidthMetrics.TotalRequests)
	}
}

func TestDispatcher_ReserveUnknownProvider(t *testing.T) {
	reg := mustRegistry(t, newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch)))
	d := NewDispatcher(reg, DispatcherConfig{})

	_, err := d.ReserveNumber(context.Background(), ReservationRequest{PhoneNumber: "+12125551234", ProviderID: "nope"})
	if _, ok := err.(*UnknownProviderError); !ok {
		t.Fatalf("expected UnknownProviderError, got %T: %v", err, err)
	}
}

func TestDispatcher_SearchRequiresCountryCode(t *testing.T) {
	reg := mustRegistry(t, newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch)))
	d := NewDispatcher(reg, DispatcherConfig{})

	_, err := d.SearchNumbers(context.Background(), NumberSearchRequest{})
	if _, ok := err.(*InvalidRequestError); !ok {
		t.Fatalf("expected InvalidRequestError, got %T: %v", err, err)
	}
}

func TestDispatcher_PortNumberRejectedIsReturnedNotRetried(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeaturePorting))
	bandwidth := newStubAdapter(descriptor("bandwidth", 2, FeaturePorting))
	twilio.portFn = func(PortingRequest) Outcome[PortingResponse] {
		return Success(PortingResponse{Status: PortingRejected, RejectionReason: "pin mismatch"})
	}
	reg := mustRegistry(t, twilio, bandwidth)
	d := NewDispatcher(reg, DispatcherConfig{})

	resp, err := d.PortNumber(context.Background(), PortingRequest{PhoneNumber: "+12125551234"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != PortingRejected {
		t.Fatalf("expected rejected status, got %+v", resp)
	}
	if bandwidth.portCalls != 0 {
		t.Fatalf("bandwidth should not be invoked after a rejected (not retryable) business outcome")
	}
	if reg.Breaker("twilio").Snapshot().ConsecutiveFailures != 0 {
		t.Fatalf("business failure must not advance the breaker")
	}
}

func TestDispatcher_CheckNumberAvailability(t *testing.T) {
	twilio := newStubAdapter(descriptor("twilio", 1, FeatureNumberSearch))
	twilio.availableFn = func(string) Outcome[bool] { return Success(true) }
	reg := mustRegistry(t, twilio)
	d := NewDispatcher(reg, DispatcherConfig{})

	res, err := d.CheckNumberAvailability(context.Background(), "+12125551234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Available || res.ProviderID != "twilio" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
