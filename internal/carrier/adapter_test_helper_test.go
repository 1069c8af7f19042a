package carrier

import (
	"context"
	"sync"
)

// stubAdapter is an in-memory Adapter used across this package's tests. It
// lets tests script per-call outcomes without touching real transports,
// mirroring the mock-adapter-as-test-concern guidance of SPEC_FULL.md §9.
type stubAdapter struct {
	descriptor ProviderDescriptor

	mu           sync.Mutex
	searchFn     func(NumberSearchRequest) Outcome[NumberSearchResponse]
	reserveFn    func(ReservationRequest) Outcome[ReservationResponse]
	purchaseFn   func(PurchaseRequest) Outcome[PurchaseResponse]
	portFn       func(PortingRequest) Outcome[PortingResponse]
	availableFn  func(string) Outcome[bool]
	releaseFn    func(string) Outcome[bool]
	healthProbe  func() bool
	searchCalls  int
	portCalls    int
}

func newStubAdapter(d ProviderDescriptor) *stubAdapter {
	return &stubAdapter{descriptor: d, healthProbe: func() bool { return true }}
}

func (s *stubAdapter) Descriptor() ProviderDescriptor { return s.descriptor }

func (s *stubAdapter) SearchNumbers(ctx context.Context, req NumberSearchRequest) Outcome[NumberSearchResponse] {
	s.mu.Lock()
	s.searchCalls++
	s.mu.Unlock()
	if s.searchFn == nil {
		return Success(NumberSearchResponse{Provider: s.descriptor.ID})
	}
	return s.searchFn(req)
}

func (s *stubAdapter) ReserveNumber(ctx context.Context, req ReservationRequest) Outcome[ReservationResponse] {
	if s.reserveFn == nil {
		return Success(ReservationResponse{Provider: s.descriptor.ID, Status: ReservationReserved})
	}
	return s.reserveFn(req)
}

func (s *stubAdapter) PurchaseNumber(ctx context.Context, req PurchaseRequest) Outcome[PurchaseResponse] {
	if s.purchaseFn == nil {
		return Success(PurchaseResponse{Status: PurchasePurchased})
	}
	return s.purchaseFn(req)
}

func (s *stubAdapter) PortNumber(ctx context.Context, req PortingRequest) Outcome[PortingResponse] {
	s.mu.Lock()
	s.portCalls++
	s.mu.Unlock()
	if s.portFn == nil {
		return Success(PortingResponse{Status: PortingSubmitted})
	}
	return s.portFn(req)
}

func (s *stubAdapter) CheckNumberAvailability(ctx context.Context, phoneNumber string) Outcome[bool] {
	if s.availableFn == nil {
		return Success(true)
	}
	return s.availableFn(phoneNumber)
}

func (s *stubAdapter) ReleaseReservation(ctx context.Context, reservationID string) Outcome[bool] {
	if s.releaseFn == nil {
		return Success(true)
	}
	return s.releaseFn(reservationID)
}

func (s *stubAdapter) HealthProbe(ctx context.Context) bool {
	return s.healthProbe()
}

func (s *stubAdapter) SearchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCalls
}

func descriptor(id string, priority int, feature string) ProviderDescriptor {
	return ProviderDescriptor{
		ID:       id,
		Name:     id,
		Priority: priority,
		Enabled:  true,
		Regions:  map[string]struct{}{RegionWildcard: {}},
		Capabilities: map[string]Capability{
			feature: {Feature: feature, Supported: true},
		},
	}
}
