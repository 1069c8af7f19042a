package carrier

import "context"

// Outcome normalizes an adapter call's result into the sum type called for
// in SPEC_FULL.md §4.2 / §9: a successful invocation (which may itself carry
// a business failure status such as "rejected"), a retryable failure, or a
// terminal failure. The Dispatcher treats both error variants alike: each
// counts against the breaker, the failover operations (search, porting,
// availability) move on to the next candidate, and the pinned operations
// return the error.
type Outcome[R any] struct {
	value     R
	err       *ProviderError
	retryable bool
	isError   bool
}

// Success wraps a value returned by the adapter, including one carrying a
// business-failure status (e.g. ReservationStatus=failed). It is never
// retried and never advances the breaker as a failure.
func Success[R any](v R) Outcome[R] {
	return Outcome[R]{value: v}
}

// Retryable wraps an error the adapter classifies as transient (transport
// failure) and sets its ProviderError.Retryable flag.
func Retryable[R any](err *ProviderError) Outcome[R] {
	err.Retryable = true
	return Outcome[R]{err: err, retryable: true, isError: true}
}

// Terminal wraps an error the adapter classifies as non-transient and clears
// its ProviderError.Retryable flag.
func Terminal[R any](err *ProviderError) Outcome[R] {
	err.Retryable = false
	return Outcome[R]{err: err, isError: true}
}

// IsError reports whether this outcome carries an error (Retryable or
// Terminal) rather than a value (Success).
func (o Outcome[R]) IsError() bool { return o.isError }

// Retryable reports whether this is a Retryable error outcome. The
// Dispatcher's failover loops do not consult it; they move on after any
// error outcome.
func (o Outcome[R]) Retryable() bool { return o.isError && o.retryable }

// Value returns the wrapped value; valid only when IsError() is false.
func (o Outcome[R]) Value() R { return o.value }

// Err returns the wrapped error; valid only when IsError() is true.
func (o Outcome[R]) Err() *ProviderError { return o.err }

// Adapter is the polymorphic capability every carrier integration exposes.
// Implementations are wire-format translators: request/response shaping and
// transport only, no dispatch, selection, or breaker logic.
type Adapter interface {
	SearchNumbers(ctx context.Context, req NumberSearchRequest) Outcome[NumberSearchResponse]
	ReserveNumber(ctx context.Context, req ReservationRequest) Outcome[ReservationResponse]
	PurchaseNumber(ctx context.Context, req PurchaseRequest) Outcome[PurchaseResponse]
	PortNumber(ctx context.Context, req PortingRequest) Outcome[PortingResponse]
	CheckNumberAvailability(ctx context.Context, phoneNumber string) Outcome[bool]
	ReleaseReservation(ctx context.Context, reservationID string) Outcome[bool]

	// HealthProbe is a cheap liveness check with no side effects. A probe
	// error is treated identically to a false result by the health monitor.
	HealthProbe(ctx context.Context) bool

	Descriptor() ProviderDescriptor
}

// AdapterFactory instantiates an Adapter from its static descriptor. The
// Registry uses a factory (dependency-injected, never a global mutable map)
// to build adapters at load time, per SPEC_FULL.md §4.1 / §9.
type AdapterFactory func(ProviderDescriptor) (Adapter, error)
