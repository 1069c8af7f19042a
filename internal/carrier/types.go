// Package carrier implements the provider dispatch layer: a pluggable
// registry of telecom carrier adapters fronted by a capability/region/health
// selector, a per-provider circuit breaker, a search-result cache, a
// background health monitor, and a dispatcher that performs sequential
// failover across eligible providers.
package carrier

import "time"

// Feature names recognized by the selector and adapter capability sets.
// checkNumberAvailability fails over across FeatureNumberSearch adapters
// per spec.md's own wording rather than a dedicated availability feature.
const (
	FeatureNumberSearch = "number_search"
	FeaturePurchase     = "number_purchase"
	FeaturePorting      = "number_porting"
	FeatureSMS          = "sms"
	FeatureVoice        = "voice"
)

// RegionWildcard marks a descriptor or capability as unrestricted by region.
const RegionWildcard = "*"

// RateLimits mirrors the rateLimits{perSecond,perMinute,perHour} option of
// §6. The core never enforces these; it only carries them through from
// configuration so adapters or the host process can apply them.
type RateLimits struct {
	PerSecond int
	PerMinute int
	PerHour   int
}

// Capability describes one feature a provider exposes, optionally restricted
// to a set of regions. A nil or empty Regions set (with Supported true) means
// unrestricted.
type Capability struct {
	Feature   string
	Supported bool
	Regions   map[string]struct{}
}

// allowsRegion reports whether region is permitted by this capability. An
// empty Regions set means unrestricted.
func (c Capability) allowsRegion(region string) bool {
	if len(c.Regions) == 0 {
		return true
	}
	if region == "" {
		return true
	}
	_, ok := c.Regions[region]
	return ok
}

// ProviderDescriptor is the static, immutable-after-load configuration for
// one carrier. Its lifetime is the process lifetime.
type ProviderDescriptor struct {
	ID       string
	Name     string
	Priority int // lower = preferred
	Enabled  bool

	// Regions is the set of region codes this provider serves, or {"*"} for
	// unrestricted.
	Regions map[string]struct{}

	// Capabilities is keyed by feature name after load-time deduplication
	// (see Dedupe note in DESIGN.md / SPEC_FULL.md §3).
	Capabilities map[string]Capability

	BaseURL      string
	Timeout      time.Duration
	RetryAttempts int
	RetryDelay   time.Duration
	RateLimits   RateLimits

	// Credentials is opaque to the core; adapters interpret it.
	Credentials map[string]string
}

// SupportsRegion reports whether region is served by this descriptor.
func (d ProviderDescriptor) SupportsRegion(region string) bool {
	if region == "" {
		return true
	}
	if _, ok := d.Regions[RegionWildcard]; ok {
		return true
	}
	_, ok := d.Regions[region]
	return ok
}

// SupportsFeature reports whether feature is present and, if region is
// non-empty, that the capability permits that region.
func (d ProviderDescriptor) SupportsFeature(feature, region string) bool {
	cap, ok := d.Capabilities[feature]
	if !ok || !cap.Supported {
		return false
	}
	return cap.allowsRegion(region)
}

// HealthStatus is the coarse health classification of a provider.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ProviderHealth is dynamic per-provider state, mutated by the health
// monitor and by every dispatched call (see state.go for the update rules).
type ProviderHealth struct {
	Status             HealthStatus
	LastCheckAt        time.Time
	LastResponseTimeMs int64
	UptimePercent      float64
}

// IsHealthy reports status=healthy AND uptime>80, per §3's invariant.
func (h ProviderHealth) IsHealthy() bool {
	return h.Status == HealthHealthy && h.UptimePercent > 80
}

// ProviderMetrics are monotonic counters plus rolling averages, updated
// atomically per provider on every dispatched call.
type ProviderMetrics struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	AvgResponseTimeMs  float64
	ErrorRatePercent   float64
	LastError          string
	LastSuccessAt      time.Time
}

// --- Request / response DTOs -----------------------------------------------

// NumberSearchRequest carries carrier-agnostic search parameters.
type NumberSearchRequest struct {
	CountryCode string
	AreaCode    string
	City        string
	Region      string
	Pattern     string
	Features    []string
	Limit       int
}

// PhoneNumber is a single result returned by a search.
type PhoneNumber struct {
	Number   string
	Region   string
	Features []string
	Rate     float64
}

// NumberSearchResponse is the normalized search result.
type NumberSearchResponse struct {
	Numbers        []PhoneNumber
	TotalCount     int
	SearchID       string
	Provider       string
	ResponseTimeMs int64
	Cached         bool
}

// CustomerInfo is carried opaquely through reservation/purchase/porting
// requests.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// ReservationStatus enumerates ReservationResponse.Status values.
type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "reserved"
	ReservationFailed   ReservationStatus = "failed"
)

// ReservationRequest pins a single carrier (no failover).
type ReservationRequest struct {
	PhoneNumber     string
	ProviderID      string
	DurationMinutes int
	CustomerInfo    CustomerInfo
}

// ReservationResponse is the result of a pinned reservation call.
type ReservationResponse struct {
	ReservationID string
	PhoneNumber   string
	Provider      string
	ExpiresAt     time.Time
	Status        ReservationStatus
}

// BillingInfo is opaque billing detail for a purchase.
type BillingInfo struct {
	Method string
	Token  string
}

// PurchaseStatus enumerates PurchaseResponse.Status values.
type PurchaseStatus string

const (
	PurchasePurchased PurchaseStatus = "purchased"
	PurchasePending   PurchaseStatus = "pending"
	PurchaseFailed    PurchaseStatus = "failed"
)

// PurchaseRequest pins a single carrier (no failover).
type PurchaseRequest struct {
	PhoneNumber   string
	ProviderID    string
	ReservationID string
	CustomerInfo  CustomerInfo
	BillingInfo   *BillingInfo
}

// PurchaseResponse is the result of a pinned purchase call.
type PurchaseResponse struct {
	PurchaseID     string
	Status         PurchaseStatus
	ActivationDate *time.Time
	MonthlyRate    float64
	SetupFee       float64
	Features       []string
}

// PortingDocument is an opaque supporting document reference for a port
// request (e.g. a letter of authorization).
type PortingDocument struct {
	Name string
	URL  string
}

// PortingStatus enumerates PortingResponse.Status values.
type PortingStatus string

const (
	PortingSubmitted PortingStatus = "submitted"
	PortingRejected  PortingStatus = "rejected"
	PortingFailed    PortingStatus = "failed"
)

// PortingRequest carries everything a carrier needs to validate and accept a
// number port.
type PortingRequest struct {
	PhoneNumber     string
	CurrentProvider string
	AccountNumber   string
	PIN             string
	AuthorizedName  string
	ServiceAddress  string
	Documents       []PortingDocument
}

// PortingResponse is the result of a porting attempt, carried through
// failover like a search.
type PortingResponse struct {
	PortingID           string
	Status              PortingStatus
	EstimatedCompletion *time.Time
	RejectionReason     string
}

// AvailabilityResult is the output of checkNumberAvailability.
type AvailabilityResult struct {
	Available  bool
	ProviderID string
}

// HealthSnapshot is what providerHealth() reports per provider.
type HealthSnapshot struct {
	Healthy       bool
	Status        HealthStatus
	UptimePercent float64
}
