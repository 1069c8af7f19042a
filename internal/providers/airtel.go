package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// AirtelAdapter wraps Airtel IQ's business numbers API.
type AirtelAdapter struct {
	adapterBase
	merchantID string
}

func NewAirtelAdapter(d carrier.ProviderDescriptor, doer HTTPDoer) *AirtelAdapter {
	headers := map[string]string{}
	if key := d.Credentials["clientSecret"]; key != "" {
		headers["X-Client-Secret"] = key
	}
	return &AirtelAdapter{adapterBase: newAdapterBase(d, doer, headers), merchantID: d.Credentials["merchantId"]}
}

type airtelSearchResponse struct {
	Data []struct {
		MSISDN string `json:"msisdn"`
		Circle string `json:"circle"`
	} `json:"data"`
}

func (a *AirtelAdapter) SearchNumbers(ctx context.Context, req carrier.NumberSearchRequest) carrier.Outcome[carrier.NumberSearchResponse] {
	start := time.Now()
	var raw airtelSearchResponse
	path := fmt.Sprintf("/v2/numbers/search?merchantId=%s&circle=%s&prefix=%s", a.merchantID, req.Region, req.Pattern)

	err := a.retry.Do(ctx, isRetryableHTTPErr, func() error {
		return a.client.doJSON(ctx, "GET", path, nil, &raw)
	})
	if err != nil {
		return classifyOutcomeErr[carrier.NumberSearchResponse](a.descriptor.ID, err)
	}

	numbers := make([]carrier.PhoneNumber, 0, len(raw.Data))
	for _, n := range raw.Data {
		numbers = append(numbers, carrier.PhoneNumber{Number: n.MSISDN, Region: n.Circle})
	}
	return carrier.Success(carrier.NumberSearchResponse{
		Numbers:        numbers,
		TotalCount:     len(numbers),
		SearchID:       fmt.Sprintf("airtel-%d", time.Now().UnixNano()),
		Provider:       a.descriptor.ID,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
}

func (a *AirtelAdapter) ReserveNumber(ctx context.Context, req carrier.ReservationRequest) carrier.Outcome[carrier.ReservationResponse] {
	var raw struct {
		HoldID string `json:"holdId"`
		Status string `json:"status"`
	}
	body := map[string]any{"merchantId": a.merchantID, "msisdn": req.PhoneNumber}
	if err := a.client.doJSON(ctx, "POST", "/v2/numbers/hold", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.ReservationResponse](a.descriptor.ID, err)
	}
	status := carrier.ReservationReserved
	if raw.Status == "failed" {
		status = carrier.ReservationFailed
	}
	return carrier.Success(carrier.ReservationResponse{
		ReservationID: raw.HoldID,
		PhoneNumber:   req.PhoneNumber,
		Provider:      a.descriptor.ID,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:        status,
	})
}

func (a *AirtelAdapter) PurchaseNumber(ctx context.Context, req carrier.PurchaseRequest) carrier.Outcome[carrier.PurchaseResponse] {
	var raw struct {
		AllocationID string  `json:"allocationId"`
		Status       string  `json:"status"`
		MonthlyFee   float64 `json:"monthlyFee"`
	}
	body := map[string]any{"merchantId": a.merchantID, "holdId": req.ReservationID}
	if err := a.client.doJSON(ctx, "POST", "/v2/numbers/allocate", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PurchaseResponse](a.descriptor.ID, err)
	}
	status := carrier.PurchasePurchased
	switch raw.Status {
	case "pending":
		status = carrier.PurchasePending
	case "failed":
		status = carrier.PurchaseFailed
	}
	return carrier.Success(carrier.PurchaseResponse{PurchaseID: raw.AllocationID, Status: status, MonthlyRate: raw.MonthlyFee})
}

func (a *AirtelAdapter) PortNumber(ctx context.Context, req carrier.PortingRequest) carrier.Outcome[carrier.PortingResponse] {
	var raw struct {
		PortRequestID string `json:"portRequestId"`
		Status        string `json:"status"`
		Reason        string `json:"reason"`
	}
	body := map[string]any{
		"merchantId":     a.merchantID,
		"msisdn":         req.PhoneNumber,
		"accountNumber":  req.AccountNumber,
		"pin":            req.PIN,
		"authorizedName": req.AuthorizedName,
	}
	if err := a.client.doJSON(ctx, "POST", "/v2/numbers/port", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PortingResponse](a.descriptor.ID, err)
	}
	status := carrier.PortingSubmitted
	switch raw.Status {
	case "rejected":
		status = carrier.PortingRejected
	case "failed":
		status = carrier.PortingFailed
	}
	return carrier.Success(carrier.PortingResponse{PortingID: raw.PortRequestID, Status: status, RejectionReason: raw.Reason})
}

func (a *AirtelAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) carrier.Outcome[bool] {
	var raw struct {
		Available bool `json:"available"`
	}
	path := fmt.Sprintf("/v2/numbers/%s/status?merchantId=%s", phoneNumber, a.merchantID)
	if err := a.client.doJSON(ctx, "GET", path, nil, &raw); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(raw.Available)
}

func (a *AirtelAdapter) ReleaseReservation(ctx context.Context, reservationID string) carrier.Outcome[bool] {
	path := fmt.Sprintf("/v2/numbers/hold/%s?merchantId=%s", reservationID, a.merchantID)
	if err := a.client.doJSON(ctx, "DELETE", path, nil, nil); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(true)
}

var _ carrier.Adapter = (*AirtelAdapter)(nil)
