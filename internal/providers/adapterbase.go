package providers

import (
	"context"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// adapterBase holds what every HTTP-backed carrier adapter needs: its
// descriptor, a REST client, and a retry policy. Concrete adapters embed
// this and add their own wire-shape translation methods.
type adapterBase struct {
	descriptor carrier.ProviderDescriptor
	client     *restClient
	retry      RetryPolicy
}

func newAdapterBase(d carrier.ProviderDescriptor, doer HTTPDoer, headers map[string]string) adapterBase {
	return adapterBase{
		descriptor: d,
		client:     newRESTClient(d.BaseURL, doer, headers),
		retry:      NewRetryPolicy(d.RetryAttempts, d.RetryDelay),
	}
}

func (a adapterBase) Descriptor() carrier.ProviderDescriptor { return a.descriptor }

// classify turns a REST call error into the appropriate Outcome error
// variant: an *httpError whose Retryable() is true becomes a Retryable
// transport error; anything else (including a non-retryable httpError, a
// JSON decode failure, or a ctx error) becomes Terminal.
func classifyOutcomeErr[R any](providerID string, err error) carrier.Outcome[R] {
	if he, ok := err.(*httpError); ok && he.Retryable() {
		return carrier.Retryable[R](carrier.NewTransportError(providerID, he))
	}
	return carrier.Terminal[R](carrier.NewBusinessError(providerID, err.Error()))
}

// HealthProbe performs a cheap GET against the carrier's health endpoint. A
// non-2xx or transport error counts as unhealthy; adapters may override this
// if the carrier exposes a dedicated status endpoint.
func (a adapterBase) HealthProbe(ctx context.Context) bool {
	err := a.client.doJSON(ctx, "GET", "/health", nil, nil)
	return err == nil
}
