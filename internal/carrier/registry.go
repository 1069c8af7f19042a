package carrier

import "fmt"

// entry pairs an instantiated Adapter with its dispatcher-owned state
// (breaker/health/metrics), keeping Registry ownership (the adapter) and
// dispatcher ownership (state) distinct per SPEC_FULL.md §3's Ownership
// rules, while storing them together for lookup convenience.
type entry struct {
	adapter Adapter
	state   *providerState
}

// Registry loads provider descriptors, instantiates one adapter per
// enabled=true descriptor, and exposes stable-order lookup. It is immutable
// after construction — dynamic re-registration is a non-goal (spec.md §4.1).
//
// Registry is built via dependency injection (NewRegistry /
// NewRegistryFromAdapters), never by reaching into a private mutable map,
// per SPEC_FULL.md §9's re-architecture of the source's prototype-mutation
// pattern.
type Registry struct {
	order   []string
	entries map[string]*entry
}

// NewRegistry instantiates one adapter per enabled descriptor via factory,
// in descriptor order, and returns a Registry. Disabled descriptors are
// skipped entirely.
func NewRegistry(descriptors []ProviderDescriptor, factory AdapterFactory, bc BreakerConfig) (*Registry, error) {
	r := &Registry{entries: make(map[string]*entry)}
	for _, d := range descriptors {
		if !d.Enabled {
			continue
		}
		adapter, err := factory(d)
		if err != nil {
			return nil, fmt.Errorf("instantiate provider %q: %w", d.ID, err)
		}
		if err := r.add(d.ID, adapter, bc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewRegistryFromAdapters builds a Registry directly from already
// constructed adapters, bypassing the factory — the constructor tests use to
// inject mock adapters (SPEC_FULL.md §9).
func NewRegistryFromAdapters(adapters []Adapter, bc BreakerConfig) (*Registry, error) {
	r := &Registry{entries: make(map[string]*entry)}
	for _, a := range adapters {
		d := a.Descriptor()
		if err := r.add(d.ID, a, bc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(id string, adapter Adapter, bc BreakerConfig) error {
	if id == "" {
		return fmt.Errorf("provider descriptor missing id")
	}
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("duplicate provider id %q", id)
	}
	r.entries[id] = &entry{adapter: adapter, state: newProviderState(id, bc)}
	r.order = append(r.order, id)
	return nil
}

// Get returns the adapter registered under id, or ok=false if absent.
func (r *Registry) Get(id string) (Adapter, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.adapter, true
}

// All returns adapters in stable registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].adapter)
	}
	return out
}

// Order returns the provider ids in stable registration order.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) stateFor(id string) *providerState {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	return e.state
}

// Breaker returns the circuit breaker owned by the dispatcher subsystem for
// id, or nil if id is not registered.
func (r *Registry) Breaker(id string) *CircuitBreaker {
	s := r.stateFor(id)
	if s == nil {
		return nil
	}
	return s.breaker
}

// Health returns the current health snapshot for id.
func (r *Registry) Health(id string) (ProviderHealth, bool) {
	s := r.stateFor(id)
	if s == nil {
		return ProviderHealth{}, false
	}
	return s.Health(), true
}

// Metrics returns the current metrics snapshot for id.
func (r *Registry) Metrics(id string) (ProviderMetrics, bool) {
	s := r.stateFor(id)
	if s == nil {
		return ProviderMetrics{}, false
	}
	return s.Metrics(), true
}

// MergeCapabilities resolves SPEC_FULL.md §3's Open Question: a source list
// of {feature, supported, regions} triples may contain duplicate feature
// names (e.g. two "voice" entries). This merges them by feature, unioning
// region sets and OR-ing Supported, producing the map Capabilities expects.
// Used by internal/carrierconfig when parsing raw descriptor configuration.
func MergeCapabilities(raw []Capability) map[string]Capability {
	out := make(map[string]Capability, len(raw))
	for _, cap := range raw {
		existing, ok := out[cap.Feature]
		if !ok {
			out[cap.Feature] = cap
			continue
		}
		merged := Capability{Feature: cap.Feature, Supported: existing.Supported || cap.Supported}
		merged.Regions = make(map[string]struct{})
		for r := range existing.Regions {
			merged.Regions[r] = struct{}{}
		}
		for r := range cap.Regions {
			merged.Regions[r] = struct{}{}
		}
		out[cap.Feature] = merged
	}
	return out
}
