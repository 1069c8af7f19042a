package providers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// MockAdapter is a deterministic in-memory adapter used by carrierd's demo
// mode and by integration tests that want a real carrier.Adapter without a
// network dependency. It never calls out over HTTP.
type MockAdapter struct {
	descriptor carrier.ProviderDescriptor
	rng        *rand.Rand
	failRate   float64
}

// NewMockAdapter builds a mock adapter. failRate (0..1) is the fraction of
// SearchNumbers calls that return a Retryable transport error, letting
// demo/test setups exercise failover without a real outage.
func NewMockAdapter(d carrier.ProviderDescriptor, failRate float64, seed int64) *MockAdapter {
	return &MockAdapter{descriptor: d, rng: rand.New(rand.NewSource(seed)), failRate: failRate}
}

func (a *MockAdapter) Descriptor() carrier.ProviderDescriptor { return a.descriptor }

func (a *MockAdapter) SearchNumbers(ctx context.Context, req carrier.NumberSearchRequest) carrier.Outcome[carrier.NumberSearchResponse] {
	if a.rng.Float64() < a.failRate {
		return carrier.Retryable[carrier.NumberSearchResponse](carrier.NewTransportError(a.descriptor.ID, fmt.Errorf("simulated outage")))
	}
	count := req.Limit
	if count <= 0 || count > 5 {
		count = 5
	}
	numbers := make([]carrier.PhoneNumber, count)
	for i := range numbers {
		numbers[i] = carrier.PhoneNumber{
			Number: fmt.Sprintf("+1%s%07d", req.AreaCode, a.rng.Intn(9999999)),
			Region: req.Region,
		}
	}
	return carrier.Success(carrier.NumberSearchResponse{
		Numbers:        numbers,
		TotalCount:     len(numbers),
		SearchID:       fmt.Sprintf("mock-%d", a.rng.Int63()),
		Provider:       a.descriptor.ID,
		ResponseTimeMs: int64(5 + a.rng.Intn(20)),
	})
}

func (a *MockAdapter) ReserveNumber(ctx context.Context, req carrier.ReservationRequest) carrier.Outcome[carrier.ReservationResponse] {
	return carrier.Success(carrier.ReservationResponse{
		ReservationID: fmt.Sprintf("mock-res-%d", a.rng.Int63()),
		PhoneNumber:   req.PhoneNumber,
		Provider:      a.descriptor.ID,
		ExpiresAt:     time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:        carrier.ReservationReserved,
	})
}

func (a *MockAdapter) PurchaseNumber(ctx context.Context, req carrier.PurchaseRequest) carrier.Outcome[carrier.PurchaseResponse] {
	return carrier.Success(carrier.PurchaseResponse{
		PurchaseID:  fmt.Sprintf("mock-pur-%d", a.rng.Int63()),
		Status:      carrier.PurchasePurchased,
		MonthlyRate: 1.00,
	})
}

func (a *MockAdapter) PortNumber(ctx context.Context, req carrier.PortingRequest) carrier.Outcome[carrier.PortingResponse] {
	return carrier.Success(carrier.PortingResponse{
		PortingID: fmt.Sprintf("mock-port-%d", a.rng.Int63()),
		Status:    carrier.PortingSubmitted,
	})
}

func (a *MockAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) carrier.Outcome[bool] {
	return carrier.Success(true)
}

func (a *MockAdapter) ReleaseReservation(ctx context.Context, reservationID string) carrier.Outcome[bool] {
	return carrier.Success(true)
}

func (a *MockAdapter) HealthProbe(ctx context.Context) bool {
	return a.rng.Float64() >= a.failRate
}

var _ carrier.Adapter = (*MockAdapter)(nil)
