package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// VonageAdapter wraps Vonage's Number Management API.
type VonageAdapter struct {
	adapterBase
	apiKey string
}

func NewVonageAdapter(d carrier.ProviderDescriptor, doer HTTPDoer) *VonageAdapter {
	return &VonageAdapter{
		adapterBase: newAdapterBase(d, doer, nil),
		apiKey:      d.Credentials["apiKey"],
	}
}

type vonageSearchResponse struct {
	Numbers []struct {
		MSISDN  string   `json:"msisdn"`
		Country string   `json:"country"`
		Features []string `json:"features"`
		Cost     string   `json:"cost"`
	} `json:"numbers"`
}

func (a *VonageAdapter) SearchNumbers(ctx context.Context, req carrier.NumberSearchRequest) carrier.Outcome[carrier.NumberSearchResponse] {
	start := time.Now()
	var raw vonageSearchResponse
	path := fmt.Sprintf("/number/search?api_key=%s&country=%s&pattern=%s&size=%d", a.apiKey, req.CountryCode, req.Pattern, maxInt(req.Limit, 10))

	err := a.retry.Do(ctx, isRetryableHTTPErr, func() error {
		return a.client.doJSON(ctx, "GET", path, nil, &raw)
	})
	if err != nil {
		return classifyOutcomeErr[carrier.NumberSearchResponse](a.descriptor.ID, err)
	}

	numbers := make([]carrier.PhoneNumber, 0, len(raw.Numbers))
	for _, n := range raw.Numbers {
		numbers = append(numbers, carrier.PhoneNumber{Number: n.MSISDN, Region: n.Country, Features: n.Features})
	}
	return carrier.Success(carrier.NumberSearchResponse{
		Numbers:        numbers,
		TotalCount:     len(numbers),
		SearchID:       fmt.Sprintf("vonage-%d", time.Now().UnixNano()),
		Provider:       a.descriptor.ID,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
}

// ReserveNumber: Vonage has no separate hold step, so the adapter makes one
// availability search for the number and, if it is available, returns a
// locally generated reservation id valid for DurationMinutes. Nothing is
// recorded on the Vonage side.
func (a *VonageAdapter) ReserveNumber(ctx context.Context, req carrier.ReservationRequest) carrier.Outcome[carrier.ReservationResponse] {
	var raw struct {
		Available bool `json:"available"`
	}
	path := fmt.Sprintf("/number/search?api_key=%s&pattern=%s", a.apiKey, req.PhoneNumber)
	if err := a.client.doJSON(ctx, "GET", path, nil, &raw); err != nil {
		return classifyOutcomeErr[carrier.ReservationResponse](a.descriptor.ID, err)
	}
	status := carrier.ReservationReserved
	if !raw.Available {
		status = carrier.ReservationFailed
	}
	return carrier.Success(carrier.ReservationResponse{
		ReservationID: fmt.Sprintf("vonage-hold-%d", time.Now().UnixNano()),
		PhoneNumber:   req.PhoneNumber,
		Provider:      a.descriptor.ID,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:        status,
	})
}

func (a *VonageAdapter) PurchaseNumber(ctx context.Context, req carrier.PurchaseRequest) carrier.Outcome[carrier.PurchaseResponse] {
	var raw struct {
		ErrorCode string `json:"error-code"`
	}
	body := map[string]any{"api_key": a.apiKey, "msisdn": req.PhoneNumber}
	if err := a.client.doJSON(ctx, "POST", "/number/buy", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PurchaseResponse](a.descriptor.ID, err)
	}
	status := carrier.PurchasePurchased
	if raw.ErrorCode != "" && raw.ErrorCode != "200" {
		status = carrier.PurchaseFailed
	}
	return carrier.Success(carrier.PurchaseResponse{PurchaseID: req.PhoneNumber, Status: status})
}

// PortNumber: Vonage requires a manually-reviewed porting request form; the
// adapter submits it but the carrier's own workflow decides accept/reject
// asynchronously, so Status is always "submitted" on a successful call.
func (a *VonageAdapter) PortNumber(ctx context.Context, req carrier.PortingRequest) carrier.Outcome[carrier.PortingResponse] {
	var raw struct {
		RequestID string `json:"request_id"`
	}
	body := map[string]any{
		"api_key":         a.apiKey,
		"msisdn":          req.PhoneNumber,
		"account_number":  req.AccountNumber,
		"pin":             req.PIN,
		"authorized_name": req.AuthorizedName,
	}
	if err := a.client.doJSON(ctx, "POST", "/number/porting/request", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PortingResponse](a.descriptor.ID, err)
	}
	return carrier.Success(carrier.PortingResponse{PortingID: raw.RequestID, Status: carrier.PortingSubmitted})
}

func (a *VonageAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) carrier.Outcome[bool] {
	var raw struct {
		Available bool `json:"available"`
	}
	path := fmt.Sprintf("/number/search?api_key=%s&pattern=%s", a.apiKey, phoneNumber)
	if err := a.client.doJSON(ctx, "GET", path, nil, &raw); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(raw.Available)
}

// ReleaseReservation is a no-op beyond acknowledgement: Vonage holds are
// soft-locks with no remote hold record to release.
func (a *VonageAdapter) ReleaseReservation(ctx context.Context, reservationID string) carrier.Outcome[bool] {
	return carrier.Success(true)
}

var _ carrier.Adapter = (*VonageAdapter)(nil)
