package carrier

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a ProviderError for retry/failover decisions, in the
// style of the teacher's agent/providers.FailoverReason.
type ErrorCode string

const (
	// CodeTransport covers network/timeout/5xx/rate-limited failures.
	// Retryable: the dispatcher may continue failover.
	CodeTransport ErrorCode = "transport"

	// CodeBusiness covers 4xx semantic errors from the carrier (e.g.
	// "number not available"). Non-retryable at the adapter level, but for
	// search/porting the dispatcher still advances to the next candidate
	// because the operation itself is idempotent.
	CodeBusiness ErrorCode = "business"

	// CodeBreakerOpen is injected by the dispatcher when a breaker is open;
	// it is never surfaced to the caller if another adapter succeeds.
	CodeBreakerOpen ErrorCode = "breaker_open"

	// CodeInvalidRequest marks a request missing required fields.
	CodeInvalidRequest ErrorCode = "invalid_request"

	// CodeUnknownProvider marks a providerId absent from the registry.
	CodeUnknownProvider ErrorCode = "unknown_provider"
)

// ProviderError is the normalized error every adapter boundary returns.
// Retryable signals that the dispatcher may continue failover to the next
// provider.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Retryable  bool
	ProviderID string
	Cause      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Code)
	if e.ProviderID != "" {
		fmt.Fprintf(&b, " %s", e.ProviderID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	} else if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// NewTransportError builds a retryable transport-layer ProviderError.
func NewTransportError(providerID string, cause error) *ProviderError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ProviderError{Code: CodeTransport, Message: msg, Retryable: true, ProviderID: providerID, Cause: cause}
}

// NewBusinessError builds a non-retryable business-layer ProviderError (a
// thrown one — distinct from a Success carrying a failed/rejected status,
// which is not an error at all; see Outcome in adapter.go).
func NewBusinessError(providerID, message string) *ProviderError {
	return &ProviderError{Code: CodeBusiness, Message: message, Retryable: false, ProviderID: providerID}
}

// ErrBreakerOpen is returned by the Dispatcher's provider-pinned operations
// (reserve, purchase, release) when the provider's breaker rejects the call.
// The failover operations do not build it: they skip a provider whose
// breaker rejects the call and move on to the next candidate.
func ErrBreakerOpen(providerID string) *ProviderError {
	return &ProviderError{Code: CodeBreakerOpen, Message: "circuit breaker is open", Retryable: true, ProviderID: providerID}
}

// InvalidRequestError signals a malformed request — terminal,
// non-retryable.
type InvalidRequestError struct {
	Operation string
	Reason    string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request for %s: %s", e.Operation, e.Reason)
}

// UnknownProviderError signals a providerId absent from the registry —
// terminal.
type UnknownProviderError struct {
	ProviderID string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.ProviderID)
}

// AllProvidersFailedError is terminal: every eligible adapter was tried and
// none succeeded. It carries the attempted providers and their last errors
// for diagnostics (and for the AllProvidersFailed error contract in §7).
type AllProvidersFailedError struct {
	Operation string
	Attempts  []ProviderAttempt
}

// ProviderAttempt records one failover attempt's outcome for diagnostics.
type ProviderAttempt struct {
	ProviderID string
	Err        error
}

func (e *AllProvidersFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "all providers failed for %s", e.Operation)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %v", a.ProviderID, a.Err)
	}
	return b.String()
}
