package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// TwilioAdapter wraps Twilio's Available Phone Numbers / Incoming Phone
// Numbers REST API surface behind the carrier.Adapter contract.
type TwilioAdapter struct {
	adapterBase
}

// NewTwilioAdapter builds a Twilio adapter from its descriptor. doer is
// injected so tests can substitute a fake HTTPDoer.
func NewTwilioAdapter(d carrier.ProviderDescriptor, doer HTTPDoer) *TwilioAdapter {
	headers := map[string]string{}
	if token := d.Credentials["authToken"]; token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &TwilioAdapter{adapterBase: newAdapterBase(d, doer, headers)}
}

type twilioSearchResponse struct {
	AvailablePhoneNumbers []struct {
		PhoneNumber  string   `json:"phone_number"`
		Region       string   `json:"region"`
		Capabilities []string `json:"capabilities"`
	} `json:"available_phone_numbers"`
}

func (a *TwilioAdapter) SearchNumbers(ctx context.Context, req carrier.NumberSearchRequest) carrier.Outcome[carrier.NumberSearchResponse] {
	start := time.Now()
	var raw twilioSearchResponse
	path := fmt.Sprintf("/AvailablePhoneNumbers/%s/Local.json?AreaCode=%s&Contains=%s", req.CountryCode, req.AreaCode, req.Pattern)

	err := a.retry.Do(ctx, func(err error) bool {
		he, ok := err.(*httpError)
		return ok && he.Retryable()
	}, func() error {
		return a.client.doJSON(ctx, "GET", path, nil, &raw)
	})
	if err != nil {
		return classifyOutcomeErr[carrier.NumberSearchResponse](a.descriptor.ID, err)
	}

	numbers := make([]carrier.PhoneNumber, 0, len(raw.AvailablePhoneNumbers))
	for _, n := range raw.AvailablePhoneNumbers {
		numbers = append(numbers, carrier.PhoneNumber{Number: n.PhoneNumber, Region: n.Region, Features: n.Capabilities})
		if req.Limit > 0 && len(numbers) >= req.Limit {
			break
		}
	}
	return carrier.Success(carrier.NumberSearchResponse{
		Numbers:        numbers,
		TotalCount:     len(numbers),
		SearchID:       fmt.Sprintf("twilio-%d", time.Now().UnixNano()),
		Provider:       a.descriptor.ID,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
}

type twilioReservationResponse struct {
	SID         string `json:"sid"`
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status"`
}

func (a *TwilioAdapter) ReserveNumber(ctx context.Context, req carrier.ReservationRequest) carrier.Outcome[carrier.ReservationResponse] {
	var raw twilioReservationResponse
	body := map[string]any{"PhoneNumber": req.PhoneNumber, "DurationMinutes": req.DurationMinutes}
	if err := a.client.doJSON(ctx, "POST", "/Reservations.json", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.ReservationResponse](a.descriptor.ID, err)
	}
	status := carrier.ReservationReserved
	if raw.Status == "failed" {
		status = carrier.ReservationFailed
	}
	return carrier.Success(carrier.ReservationResponse{
		ReservationID: raw.SID,
		PhoneNumber:   raw.PhoneNumber,
		Provider:      a.descriptor.ID,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:        status,
	})
}

type twilioPurchaseResponse struct {
	SID         string  `json:"sid"`
	Status      string  `json:"status"`
	MonthlyRate float64 `json:"monthly_rate"`
	SetupFee    float64 `json:"setup_fee"`
}

func (a *TwilioAdapter) PurchaseNumber(ctx context.Context, req carrier.PurchaseRequest) carrier.Outcome[carrier.PurchaseResponse] {
	var raw twilioPurchaseResponse
	body := map[string]any{"PhoneNumber": req.PhoneNumber, "ReservationSid": req.ReservationID}
	if err := a.client.doJSON(ctx, "POST", "/IncomingPhoneNumbers.json", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PurchaseResponse](a.descriptor.ID, err)
	}
	status := carrier.PurchasePurchased
	switch raw.Status {
	case "pending":
		status = carrier.PurchasePending
	case "failed":
		status = carrier.PurchaseFailed
	}
	return carrier.Success(carrier.PurchaseResponse{
		PurchaseID:  raw.SID,
		Status:      status,
		MonthlyRate: raw.MonthlyRate,
		SetupFee:    raw.SetupFee,
	})
}

type twilioPortResponse struct {
	PortID          string `json:"port_id"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}

func (a *TwilioAdapter) PortNumber(ctx context.Context, req carrier.PortingRequest) carrier.Outcome[carrier.PortingResponse] {
	var raw twilioPortResponse
	body := map[string]any{
		"PhoneNumber":    req.PhoneNumber,
		"AccountNumber":  req.AccountNumber,
		"Pin":            req.PIN,
		"AuthorizedName": req.AuthorizedName,
		"ServiceAddress": req.ServiceAddress,
	}
	if err := a.client.doJSON(ctx, "POST", "/Porting.json", body, &raw); err != nil {
		return classifyOutcomeErr[carrier.PortingResponse](a.descriptor.ID, err)
	}
	status := carrier.PortingSubmitted
	switch raw.Status {
	case "rejected":
		status = carrier.PortingRejected
	case "failed":
		status = carrier.PortingFailed
	}
	return carrier.Success(carrier.PortingResponse{PortingID: raw.PortID, Status: status, RejectionReason: raw.RejectionReason})
}

func (a *TwilioAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) carrier.Outcome[bool] {
	var raw struct {
		Available bool `json:"available"`
	}
	path := fmt.Sprintf("/AvailablePhoneNumbers/Check.json?PhoneNumber=%s", phoneNumber)
	if err := a.client.doJSON(ctx, "GET", path, nil, &raw); err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(raw.Available)
}

func (a *TwilioAdapter) ReleaseReservation(ctx context.Context, reservationID string) carrier.Outcome[bool] {
	err := a.client.doJSON(ctx, "DELETE", "/Reservations/"+reservationID+".json", nil, nil)
	if err != nil {
		return classifyOutcomeErr[bool](a.descriptor.ID, err)
	}
	return carrier.Success(true)
}

var _ carrier.Adapter = (*TwilioAdapter)(nil)
