package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// BandwidthAdapter wraps Bandwidth's Numbers API.
type BandwidthAdapter struct {
	adapterBase
	accountID string
}

func NewBandwidthAdapter(d carrier.ProviderDescriptor, doer HTTPDoer) *BandwidthAdapter {
	headers := map[string]string{}
	if key := d.Credentials["apiKey"]; key != "" {
		headers["X-Api-Key"] = key
	}
	return &BandwidthAdapter{
		adapterBase: newAdapterBase(d, doer, headers),
		accountID:   d.Credentials["accountId"],
	}
}

type bandwidthSearchResponse struct {
	TelephoneNumberList []struct {
		FullNumber string `json:"fullNumber"`
		City       string `json:"city"`
		LATA       string `json:"lata"`
	} `json:"telephoneNumberList"`
}

func (a *BandwidthAdapter) SearchNumbers(ctx context.Context, req carrier.NumberSearchRequest) carrier.Outcome[carrier.NumberSearchResponse] {
	start := time.Now()
	var raw bandwidthSearchResponse
	path := fmt.Sprintf("/accounts/%s/availableNumbers?areaCode=%s&city=%s&quantity=%d", a.accountID, req.AreaCode, req.City, maxInt(req.Limit, 10))

	err := a.retry.Do(ctx, isRetryableHTTPErr, func() error {
		return a.client.doJSON(ctx, "GET", path, nil, &raw)
	})
	if err != nil {
		return classifyOutcomeErr[carrier.NumberSearchResponse](a.descriptor.ID, err)
	}

	numbers := make([]carrier.PhoneNumber, 0, len(raw.TelephoneNumberList))
	for _, n := range raw.TelephoneNumberList {
		numbers = append(numbers, carrier.PhoneNumber{Number: n.FullNumber, Region: n.City})
	}
	return carrier.Success(carrier.NumberSearchResponse{
		Numbers:        numbers,
		TotalCount:     len(numbers),
		SearchID:       fmt.Sprintf("bw-%d", time.Now().UnixNano()),
		Provider:       a.descriptor.ID,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
}

func (a *BandwidthAdapter) ReserveNumber(ctx context.Context, req carrier.ReservationRequest) carrier.Outcome[carrier.ReservationResponse] {
	var raw struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	body := map[string]any{"accountId": a.accountID, "telephoneNumber": req.PhoneNumber}
	if err := a.client.doJSON(ctx, "POST", fmt.Sprintf("/accounts/%s/orders", a.accountID), body, &raw); err != nil {
		return classifyOutcomeErr[carrier.ReservationResponse](a.descriptor.ID, err)
	}
	status := carrier.ReservationReserved
	if raw.Status == "FAILED" {
		status = carrier.ReservationFailed
	}
	return carrier.Success(carrier.ReservationResponse{
		ReservationID: raw.OrderID,
		PhoneNumber:   req.PhoneNumber,
		Provider:      a.descriptor.ID,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:        status,
	})
}

func (a *BandwidthAdapter) PurchaseNumber(ctx context.Context, req carrier.PurchaseRequest) carrier.Outcome[carrier.PurchaseResponse] {
	var raw struct {
		OrderID string  `json:"orderId"`
		Status  string  `json:"status"`
		Price   float64 `json:"price"`
	}
	body := map[string]any{"accountId": a.accountID, "orderId": req.ReservationID, "confirm": true}
	if err := a.client.doJSON(ctx, "POST", fmt.Sprintf("/accounts/%s/orders/confirm", a.accountID), body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PurchaseResponse](a.descriptor.ID, err)
	}
	status := carrier.PurchasePurchased
	switch raw.Status {
	case "PENDING":
		status = carrier.PurchasePending
	case "FAILED":
		status = carrier.PurchaseFailed
	}
	return carrier.Success(carrier.PurchaseResponse{PurchaseID: raw.OrderID, Status: status, MonthlyRate: raw.Price})
}

func (a *BandwidthAdapter) PortNumber(ctx context.Context, req carrier.PortingRequest) carrier.Outcome[carrier.PortingResponse] {
	var raw struct {
		LsrOrderID string `json:"lsrOrderId"`
		Status     string `json:"status"`
		Reason     string `json:"rejectionReason"`
	}
	body := map[string]any{
		"accountId":       a.accountID,
		"subscriberNumber": req.PhoneNumber,
		"billingAccount":  req.AccountNumber,
		"billingPIN":      req.PIN,
	}
	if err := a.client.doJSON(ctx, "POST", fmt.Sprintf("/accounts/%s/lsrOrders", a.accountID), body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PortingResponse](a.descriptor.ID, err)
	}
	status := carrier.PortingSubmitted
	switch raw.Status {
	case "REJECTED":
		status = carrier.PortingRejected
	case "FAILED":
		status = carrier.PortingFailed
	}
	return carrier.Success(carrier.PortingResponse{PortingID: raw.LsrOrderID, Status: status, RejectionReason: raw.Reason})
}

func (a *BandwidthAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) carrier.Outcome[bool] {
	var raw struct {
		Available bool `json:"available"`
	}
	path := fmt.Sprintf("/accounts/%s/availableNumbers/%s", a.accountID, phoneNumber)
	if err := a.client.doJSON(ctx, "GET", path, nil, &raw); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(raw.Available)
}

func (a *BandwidthAdapter) ReleaseReservation(ctx context.Context, reservationID string) carrier.Outcome[bool] {
	path := fmt.Sprintf("/accounts/%s/orders/%s", a.accountID, reservationID)
	if err := a.client.doJSON(ctx, "DELETE", path, nil, nil); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(true)
}

var _ carrier.Adapter = (*BandwidthAdapter)(nil)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func isRetryableHTTPErr(err error) bool {
	he, ok := err.(*httpError)
	return ok && he.Retryable()
}
