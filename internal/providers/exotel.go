package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// ExotelAdapter wraps Exotel's Indian numbers API. Exotel does not support
// carrier-initiated porting, so PortNumber always returns a Terminal
// business error rather than attempting the call.
type ExotelAdapter struct {
	adapterBase
	sid string
}

func NewExotelAdapter(d carrier.ProviderDescriptor, doer HTTPDoer) *ExotelAdapter {
	headers := map[string]string{}
	if token := d.Credentials["apiToken"]; token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &ExotelAdapter{adapterBase: newAdapterBase(d, doer, headers), sid: d.Credentials["sid"]}
}

type exotelSearchResponse struct {
	Numbers []struct {
		PhoneNumber string   `json:"phone_number"`
		Circle      string   `json:"circle"`
		Features    []string `json:"features"`
	} `json:"numbers"`
}

func (a *ExotelAdapter) SearchNumbers(ctx context.Context, req carrier.NumberSearchRequest) carrier.Outcome[carrier.NumberSearchResponse] {
	start := time.Now()
	var raw exotelSearchResponse
	path := fmt.Sprintf("/Accounts/%s/IncomingPhoneNumbers/available?circle=%s&pattern=%s", a.sid, req.Region, req.Pattern)

	err := a.retry.Do(ctx, isRetryableHTTPErr, func() error {
		return a.client.doJSON(ctx, "GET", path, nil, &raw)
	})
	if err != nil {
		return classifyOutcomeErr[carrier.NumberSearchResponse](a.descriptor.ID, err)
	}

	numbers := make([]carrier.PhoneNumber, 0, len(raw.Numbers))
	for _, n := range raw.Numbers {
		numbers = append(numbers, carrier.PhoneNumber{Number: n.PhoneNumber, Region: n.Circle, Features: n.Features})
	}
	return carrier.Success(carrier.NumberSearchResponse{
		Numbers:        numbers,
		TotalCount:     len(numbers),
		SearchID:       fmt.Sprintf("exotel-%d", time.Now().UnixNano()),
		Provider:       a.descriptor.ID,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
}

func (a *ExotelAdapter) ReserveNumber(ctx context.Context, req carrier.ReservationRequest) carrier.Outcome[carrier.ReservationResponse] {
	var raw struct {
		ReservationSID string `json:"reservation_sid"`
		Status         string `json:"status"`
	}
	body := map[string]any{"PhoneNumber": req.PhoneNumber}
	if err := a.client.doJSON(ctx, "POST", fmt.Sprintf("/Accounts/%s/Reservations", a.sid), body, &raw); err != nil {
		return classifyOutcomeErr[carrier.ReservationResponse](a.descriptor.ID, err)
	}
	status := carrier.ReservationReserved
	if raw.Status == "failed" {
		status = carrier.ReservationFailed
	}
	return carrier.Success(carrier.ReservationResponse{
		ReservationID: raw.ReservationSID,
		PhoneNumber:   req.PhoneNumber,
		Provider:      a.descriptor.ID,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:        status,
	})
}

func (a *ExotelAdapter) PurchaseNumber(ctx context.Context, req carrier.PurchaseRequest) carrier.Outcome[carrier.PurchaseResponse] {
	var raw struct {
		SID    string  `json:"sid"`
		Status string  `json:"status"`
		Rate   float64 `json:"monthly_rate"`
	}
	body := map[string]any{"ReservationSid": req.ReservationID}
	if err := a.client.doJSON(ctx, "POST", fmt.Sprintf("/Accounts/%s/IncomingPhoneNumbers", a.sid), body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PurchaseResponse](a.descriptor.ID, err)
	}
	status := carrier.PurchasePurchased
	switch raw.Status {
	case "pending":
		status = carrier.PurchasePending
	case "failed":
		status = carrier.PurchaseFailed
	}
	return carrier.Success(carrier.PurchaseResponse{PurchaseID: raw.SID, Status: status, MonthlyRate: raw.Rate})
}

// PortNumber always fails terminally: Exotel's numbering capability does not
// list number_porting (see descriptor config), but the adapter guards here
// too in case a misconfigured descriptor claims otherwise.
func (a *ExotelAdapter) PortNumber(ctx context.Context, req carrier.PortingRequest) carrier.Outcome[carrier.PortingResponse] {
	return carrier.Terminal[carrier.PortingResponse](carrier.NewBusinessError(a.descriptor.ID, "exotel does not support number porting"))
}

func (a *ExotelAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) carrier.Outcome[bool] {
	var raw struct {
		Available bool `json:"available"`
	}
	path := fmt.Sprintf("/Accounts/%s/IncomingPhoneNumbers/check?number=%s", a.sid, phoneNumber)
	if err := a.client.doJSON(ctx, "GET", path, nil, &raw); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(raw.Available)
}

func (a *ExotelAdapter) ReleaseReservation(ctx context.Context, reservationID string) carrier.Outcome[bool] {
	path := fmt.Sprintf("/Accounts/%s/Reservations/%s", a.sid, reservationID)
	if err := a.client.doJSON(ctx, "DELETE", path, nil, nil); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(true)
}

var _ carrier.Adapter = (*ExotelAdapter)(nil)
