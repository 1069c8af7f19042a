package carrier

import (
	"context"
	"strings"
	"time"
)

// DispatcherConfig configures cross-cutting dispatch behavior not owned by
// the cache or breaker individually.
type DispatcherConfig struct {
	// CacheTTL is the default TTL applied to stored search responses.
	CacheTTL time.Duration

	// OnDispatch, if set, is invoked after every attempted adapter call
	// (success or failure) for metrics/logging; never for breaker
	// bookkeeping, which the Dispatcher itself owns.
	OnDispatch func(providerID, operation string, success bool, duration time.Duration)
}

// Dispatcher orchestrates selection, caching, the circuit breaker, and
// sequential failover across eligible providers (spec.md §4.6).
type Dispatcher struct {
	registry *Registry
	selector *Selector
	cache    *ResultCache
	config   DispatcherConfig
	now      func() time.Time
}

// NewDispatcher builds a Dispatcher over registry, with its own ResultCache.
func NewDispatcher(registry *Registry, config DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		selector: NewSelector(registry),
		cache:    NewResultCache(),
		config:   config,
		now:      time.Now,
	}
}

// Cache exposes the dispatcher's result cache, e.g. for invalidateByTag from
// the host process.
func (d *Dispatcher) Cache() *ResultCache { return d.cache }

// SearchNumbers implements spec.md §4.6's cache→select→failover flow.
func (d *Dispatcher) SearchNumbers(ctx context.Context, req NumberSearchRequest) (NumberSearchResponse, error) {
	if err := validateSearch(req); err != nil {
		return NumberSearchResponse{}, err
	}

	now := d.now()
	key := CacheKey(req)
	if cached, ok := d.cache.Get(key, now); ok {
		return cached, nil
	}

	candidates := d.selector.Select(FeatureNumberSearch, req.CountryCode, now)
	var attempts []ProviderAttempt
	for _, adapter := range candidates {
		id := adapter.Descriptor().ID
		resp, outcomeErr, tried := invokeBreaker(d, ctx, id, "search_numbers", func(ctx context.Context) Outcome[NumberSearchResponse] {
			return adapter.SearchNumbers(ctx, req)
		})
		if !tried {
			continue
		}
		if outcomeErr != nil {
			attempts = append(attempts, ProviderAttempt{ProviderID: id, Err: outcomeErr})
			continue
		}
		resp.Cached = false
		d.cache.Put(key, resp, []string{req.CountryCode}, d.config.CacheTTL, d.now())
		return resp, nil
	}

	return NumberSearchResponse{}, &AllProvidersFailedError{Operation: "number_search", Attempts: attempts}
}

// ReserveNumber is provider-pinned: no failover (spec.md §4.6, invariant 4).
func (d *Dispatcher) ReserveNumber(ctx context.Context, req ReservationRequest) (ReservationResponse, error) {
	if req.PhoneNumber == "" || req.ProviderID == "" {
		return ReservationResponse{}, &InvalidRequestError{Operation: "reserve_number", Reason: "phoneNumber and providerId are required"}
	}
	adapter, ok := d.registry.Get(req.ProviderID)
	if !ok {
		return ReservationResponse{}, &UnknownProviderError{ProviderID: req.ProviderID}
	}
	resp, err, tried := invokeBreaker(d, ctx, req.ProviderID, "reserve_number", func(ctx context.Context) Outcome[ReservationResponse] {
		return adapter.ReserveNumber(ctx, req)
	})
	if !tried {
		return ReservationResponse{}, ErrBreakerOpen(req.ProviderID)
	}
	if err != nil {
		return ReservationResponse{}, err
	}
	return resp, nil
}

// PurchaseNumber is provider-pinned: no failover (spec.md §4.6, invariant 4).
func (d *Dispatcher) PurchaseNumber(ctx context.Context, req PurchaseRequest) (PurchaseResponse, error) {
	if req.PhoneNumber == "" || req.ProviderID == "" || req.CustomerInfo == (CustomerInfo{}) {
		return PurchaseResponse{}, &InvalidRequestError{Operation: "purchase_number", Reason: "phoneNumber, providerId, and customerInfo are required"}
	}
	adapter, ok := d.registry.Get(req.ProviderID)
	if !ok {
		return PurchaseResponse{}, &UnknownProviderError{ProviderID: req.ProviderID}
	}
	resp, err, tried := invokeBreaker(d, ctx, req.ProviderID, "purchase_number", func(ctx context.Context) Outcome[PurchaseResponse] {
		return adapter.PurchaseNumber(ctx, req)
	})
	if !tried {
		return PurchaseResponse{}, ErrBreakerOpen(req.ProviderID)
	}
	if err != nil {
		return PurchaseResponse{}, err
	}
	return resp, nil
}

// PortNumber fails over like SearchNumbers, using feature "number_porting"
// and the country inferred from the phone number (spec.md §4.6).
// A status=rejected response is returned, not retried.
func (d *Dispatcher) PortNumber(ctx context.Context, req PortingRequest) (PortingResponse, error) {
	if req.PhoneNumber == "" {
		return PortingResponse{}, &InvalidRequestError{Operation: "port_number", Reason: "phoneNumber is required"}
	}
	country, err := InferCountry(req.PhoneNumber)
	if err != nil {
		return PortingResponse{}, err
	}

	now := d.now()
	candidates := d.selector.Select(FeaturePorting, country, now)
	var attempts []ProviderAttempt
	for _, adapter := range candidates {
		id := adapter.Descriptor().ID
		resp, outcomeErr, tried := invokeBreaker(d, ctx, id, "port_number", func(ctx context.Context) Outcome[PortingResponse] {
			return adapter.PortNumber(ctx, req)
		})
		if !tried {
			continue
		}
		if outcomeErr != nil {
			attempts = append(attempts, ProviderAttempt{ProviderID: id, Err: outcomeErr})
			continue
		}
		return resp, nil
	}

	return PortingResponse{}, &AllProvidersFailedError{Operation: "number_porting", Attempts: attempts}
}

// CheckNumberAvailability fails over across adapters supporting
// number_search in the inferred country.
func (d *Dispatcher) CheckNumberAvailability(ctx context.Context, phoneNumber string) (AvailabilityResult, error) {
	country, err := InferCountry(phoneNumber)
	if err != nil {
		return AvailabilityResult{}, err
	}

	now := d.now()
	candidates := d.selector.Select(FeatureNumberSearch, country, now)
	var attempts []ProviderAttempt
	for _, adapter := range candidates {
		id := adapter.Descriptor().ID
		available, outcomeErr, tried := invokeBreaker(d, ctx, id, "check_availability", func(ctx context.Context) Outcome[bool] {
			return adapter.CheckNumberAvailability(ctx, phoneNumber)
		})
		if !tried {
			continue
		}
		if outcomeErr != nil {
			attempts = append(attempts, ProviderAttempt{ProviderID: id, Err: outcomeErr})
			continue
		}
		return AvailabilityResult{Available: available, ProviderID: id}, nil
	}

	return AvailabilityResult{}, &AllProvidersFailedError{Operation: "check_availability", Attempts: attempts}
}

// ReleaseReservation is provider-pinned: no failover.
func (d *Dispatcher) ReleaseReservation(ctx context.Context, providerID, reservationID string) (bool, error) {
	adapter, ok := d.registry.Get(providerID)
	if !ok {
		return false, &UnknownProviderError{ProviderID: providerID}
	}
	released, err, tried := invokeBreaker(d, ctx, providerID, "release_reservation", func(ctx context.Context) Outcome[bool] {
		return adapter.ReleaseReservation(ctx, reservationID)
	})
	if !tried {
		return false, ErrBreakerOpen(providerID)
	}
	if err != nil {
		return false, err
	}
	return released, nil
}

// ProviderHealth returns id → health snapshot for every registered provider.
func (d *Dispatcher) ProviderHealth() map[string]HealthSnapshot {
	out := make(map[string]HealthSnapshot)
	for _, id := range d.registry.Order() {
		h, ok := d.registry.Health(id)
		if !ok {
			continue
		}
		out[id] = HealthSnapshot{Healthy: h.IsHealthy(), Status: h.Status, UptimePercent: h.UptimePercent}
	}
	return out
}

// ProviderMetrics returns id → metrics snapshot for every registered
// provider.
func (d *Dispatcher) ProviderMetrics() map[string]ProviderMetrics {
	out := make(map[string]ProviderMetrics)
	for _, id := range d.registry.Order() {
		m, ok := d.registry.Metrics(id)
		if !ok {
			continue
		}
		out[id] = m
	}
	return out
}

// invokeBreaker wraps a single adapter call in its breaker, handling the
// TryEnter/RecordSuccess/RecordFailure protocol and caller-initiated
// cancellation per spec.md §5. tried=false means the breaker rejected the
// call outright (OPEN, or HALF_OPEN at capacity) and the dispatcher should
// simply advance to the next candidate without counting it as a failed
// attempt.
//
// Methods cannot carry their own type parameters in Go, so this is a
// package-level generic function taking the dispatcher explicitly.
func invokeBreaker[R any](d *Dispatcher, ctx context.Context, providerID, operation string, call func(context.Context) Outcome[R]) (R, error, bool) {
	var zero R
	breaker := d.registry.Breaker(providerID)
	start := d.now()

	if breaker != nil && !breaker.TryEnter(start) {
		return zero, nil, false
	}

	outcome := call(ctx)
	duration := d.now().Sub(start)

	state := d.registry.stateFor(providerID)

	switch {
	case !outcome.IsError():
		if breaker != nil {
			breaker.RecordSuccess(d.now())
		}
		if state != nil {
			state.recordDispatchOutcome(true, duration, "", d.now())
		}
		if d.config.OnDispatch != nil {
			d.config.OnDispatch(providerID, operation, true, duration)
		}
		return outcome.Value(), nil, true

	case ctx.Err() != nil && !isDeadlineExceeded(ctx):
		// Caller-initiated cancellation: complete breaker bookkeeping with
		// a cancelled outcome that is not counted as a failure.
		if breaker != nil {
			breaker.ReleaseWithoutRecording()
		}
		if d.config.OnDispatch != nil {
			d.config.OnDispatch(providerID, operation, false, duration)
		}
		return zero, ctx.Err(), true

	default:
		err := outcome.Err()
		if breaker != nil {
			breaker.RecordFailure(d.now())
		}
		if state != nil {
			state.recordDispatchOutcome(false, duration, err.Error(), d.now())
		}
		if d.config.OnDispatch != nil {
			d.config.OnDispatch(providerID, operation, false, duration)
		}
		return zero, err, true
	}
}

func isDeadlineExceeded(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}

func validateSearch(req NumberSearchRequest) error {
	if strings.TrimSpace(req.CountryCode) == "" {
		return &InvalidRequestError{Operation: "search_numbers", Reason: "countryCode is required"}
	}
	return nil
}
