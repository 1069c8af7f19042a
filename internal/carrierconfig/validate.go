package carrierconfig

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// knownFeatures is the feature-name set the selector and adapters
// recognize; anything else in a provider's capability list is almost
// certainly a typo in carriers.yaml rather than an intentional extension.
var knownFeatures = map[string]bool{
	carrier.FeatureNumberSearch: true,
	carrier.FeaturePurchase:     true,
	carrier.FeaturePorting:      true,
	carrier.FeatureSMS:          true,
	carrier.FeatureVoice:        true,
}

// ValidationError collects every problem found in a descriptor set so an
// operator sees all of them in one `config validate` run instead of
// fixing one mistake per invocation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d config problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate checks a loaded descriptor set for the mistakes a malformed
// carriers.yaml is likely to contain: duplicate provider ids, capability
// feature names outside the set the selector recognizes, and region codes
// that are neither the wildcard nor a two-letter code.
func Validate(descriptors []carrier.ProviderDescriptor) error {
	var problems []string
	seen := make(map[string]bool, len(descriptors))

	for _, d := range descriptors {
		if d.ID == "" {
			problems = append(problems, "provider with empty id")
		} else if seen[d.ID] {
			problems = append(problems, fmt.Sprintf("duplicate provider id %q", d.ID))
		}
		seen[d.ID] = true

		for _, region := range sortedKeys(d.Regions) {
			if !validRegion(region) {
				problems = append(problems, fmt.Sprintf("provider %q: malformed region %q", d.ID, region))
			}
		}

		for _, feature := range sortedFeatures(d.Capabilities) {
			if !knownFeatures[feature] {
				problems = append(problems, fmt.Sprintf("provider %q: unknown feature %q", d.ID, feature))
				continue
			}
			for _, region := range sortedKeys(d.Capabilities[feature].Regions) {
				if !validRegion(region) {
					problems = append(problems, fmt.Sprintf("provider %q: capability %q has malformed region %q", d.ID, feature, region))
				}
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// validRegion accepts the wildcard or a two-letter upper-case region code.
func validRegion(region string) bool {
	if region == carrier.RegionWildcard {
		return true
	}
	if len(region) != 2 {
		return false
	}
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFeatures(caps map[string]carrier.Capability) []string {
	keys := make([]string, 0, len(caps))
	for k := range caps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
