package providers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

type fakeDoer struct {
	status int
	body   string
	lastReq *http.Request
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
	}, nil
}

func testDescriptor() carrier.ProviderDescriptor {
	return carrier.ProviderDescriptor{
		ID:            "twilio",
		BaseURL:       "https://api.twilio.test",
		RetryAttempts: 1,
		Credentials:   map[string]string{"authToken": "secret"},
	}
}

func TestTwilioAdapter_SearchNumbers_Success(t *testing.T) {
	doer := &fakeDoer{status: 200, body: `{"available_phone_numbers":[{"phone_number":"+14155551234","region":"CA","capabilities":["sms","voice"]}]}`}
	a := NewTwilioAdapter(testDescriptor(), doer)

	out := a.SearchNumbers(context.Background(), carrier.NumberSearchRequest{CountryCode: "US", AreaCode: "415", Limit: 10})
	if out.IsError() {
		t.Fatalf("unexpected error: %v", out.Err())
	}
	resp := out.Value()
	if len(resp.Numbers) != 1 || resp.Numbers[0].Number != "+14155551234" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if doer.lastReq.Header.Get("Authorization") != "Bearer secret" {
		t.Fatalf("expected auth header to be set")
	}
}

func TestTwilioAdapter_SearchNumbers_ServerErrorIsRetryable(t *testing.T) {
	doer := &fakeDoer{status: 503, body: "unavailable"}
	a := NewTwilioAdapter(testDescriptor(), doer)

	out := a.SearchNumbers(context.Background(), carrier.NumberSearchRequest{CountryCode: "US"})
	if !out.IsError() || !out.Retryable() {
		t.Fatalf("expected retryable error, got %+v", out)
	}
}

func TestTwilioAdapter_SearchNumbers_ClientErrorIsTerminal(t *testing.T) {
	doer := &fakeDoer{status: 400, body: "bad request"}
	a := NewTwilioAdapter(testDescriptor(), doer)

	out := a.SearchNumbers(context.Background(), carrier.NumberSearchRequest{CountryCode: "US"})
	if !out.IsError() || out.Retryable() {
		t.Fatalf("expected terminal (non-retryable) error, got %+v", out)
	}
}

func TestExotelAdapter_PortNumberAlwaysTerminal(t *testing.T) {
	a := NewExotelAdapter(testDescriptor(), &fakeDoer{status: 200, body: "{}"})
	out := a.PortNumber(context.Background(), carrier.PortingRequest{PhoneNumber: "+911234567890"})
	if !out.IsError() || out.Retryable() {
		t.Fatalf("expected terminal error, got %+v", out)
	}
}

func TestMockAdapter_SearchNumbers_Deterministic(t *testing.T) {
	d := carrier.ProviderDescriptor{ID: "mock"}
	a := NewMockAdapter(d, 0, 42)
	out := a.SearchNumbers(context.Background(), carrier.NumberSearchRequest{AreaCode: "415", Limit: 3})
	if out.IsError() {
		t.Fatalf("unexpected error: %v", out.Err())
	}
	if len(out.Value().Numbers) != 3 {
		t.Fatalf("expected 3 numbers, got %d", len(out.Value().Numbers))
	}
}

func TestMockAdapter_SearchNumbers_SimulatedFailure(t *testing.T) {
	d := carrier.ProviderDescriptor{ID: "mock"}
	a := NewMockAdapter(d, 1, 1)
	out := a.SearchNumbers(context.Background(), carrier.NumberSearchRequest{})
	if !out.IsError() || !out.Retryable() {
		t.Fatalf("expected simulated retryable failure, got %+v", out)
	}
}
