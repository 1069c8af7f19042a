package carrier

import (
	"sort"
	"time"
)

// Selector produces the ordered sequence of adapters eligible to try for a
// given (feature, region), per spec.md §4.3. It consults the registry's
// per-provider state atomically; its only side effect is the breaker's
// OPEN→HALF_OPEN transition, performed inside CircuitBreaker.CanSelect.
type Selector struct {
	registry *Registry
}

// NewSelector builds a Selector over registry.
func NewSelector(registry *Registry) *Selector {
	return &Selector{registry: registry}
}

// candidate pairs an adapter with the priority used to sort it.
type candidate struct {
	adapter  Adapter
	priority int
	order    int
}

// Select returns adapters eligible for feature (and, if region is non-empty,
// supportsRegion(region)), sorted ascending by descriptor.priority with ties
// broken by registry order.
func (s *Selector) Select(feature, region string, now time.Time) []Adapter {
	var candidates []candidate
	for i, id := range s.registry.Order() {
		adapter, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		breaker := s.registry.Breaker(id)
		if breaker != nil && !breaker.CanSelect(now) {
			continue
		}
		health, ok := s.registry.Health(id)
		if !ok || !health.IsHealthy() {
			continue
		}
		d := adapter.Descriptor()
		if !d.SupportsFeature(feature, region) {
			continue
		}
		if region != "" && !d.SupportsRegion(region) {
			continue
		}
		candidates = append(candidates, candidate{adapter: adapter, priority: d.Priority, order: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].order < candidates[j].order
	})

	out := make([]Adapter, len(candidates))
	for i, c := range candidates {
		out[i] = c.adapter
	}
	return out
}
