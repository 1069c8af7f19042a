// Package carrierconfig loads the static per-provider descriptor set and
// failover policy from YAML (or JSON5), resolving $include directives and
// environment variable expansion the same way the rest of the host process
// does, adapted from internal/config's loader.
package carrierconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

// ProviderConfig is the on-disk shape of one provider descriptor.
type ProviderConfig struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name"`
	Priority      int                `yaml:"priority"`
	Enabled       bool               `yaml:"enabled"`
	Regions       []string           `yaml:"regions"`
	Capabilities  []CapabilityConfig `yaml:"capabilities"`
	BaseURL       string             `yaml:"baseUrl"`
	TimeoutMs     int                `yaml:"timeoutMs"`
	RetryAttempts int                `yaml:"retryAttempts"`
	RetryDelayMs  int                `yaml:"retryDelayMs"`
	RateLimits    RateLimitsConfig   `yaml:"rateLimits"`
	Credentials   map[string]string  `yaml:"credentials"`
}

// CapabilityConfig is one {feature,supported,regions} entry. Multiple
// entries for the same feature are legal in the raw file (e.g. one written
// by hand, one injected by an overlay $include) and are merged by
// carrier.MergeCapabilities at load time rather than rejected.
type CapabilityConfig struct {
	Feature   string   `yaml:"feature"`
	Supported bool     `yaml:"supported"`
	Regions   []string `yaml:"regions"`
}

// RateLimitsConfig mirrors carrier.RateLimits in its on-disk form.
type RateLimitsConfig struct {
	PerSecond int `yaml:"perSecond"`
	PerMinute int `yaml:"perMinute"`
	PerHour   int `yaml:"perHour"`
}

// FailoverPolicy holds the dispatch-wide knobs that are not per-provider.
// Every field is merge-by-override: an $include overlay's non-zero field
// wins over the value the included file set, zero fields fall back to it.
type FailoverPolicy struct {
	MaxRetries               int `yaml:"maxRetries"`
	RetryDelayMs             int `yaml:"retryDelayMs"`
	HealthCheckIntervalMs    int `yaml:"healthCheckIntervalMs"`
	FailoverThresholdPercent int `yaml:"failoverThresholdPercent"`
	CircuitBreakerTimeoutMs  int `yaml:"circuitBreakerTimeoutMs"`
}

// Document is the top-level on-disk schema. Include names one or more
// sibling files to load and merge underneath this one before this
// document's own Providers/Failover are applied on top.
type Document struct {
	Include   includeList      `yaml:"$include"`
	Providers []ProviderConfig `yaml:"providers"`
	Failover  FailoverPolicy   `yaml:"failover"`
}

// includeList accepts $include written either as a single path or as a
// list of paths, since both forms show up across the example configs.
type includeList []string

func (i *includeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s == "" {
			*i = nil
			return nil
		}
		*i = includeList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*i = includeList(list)
		return nil
	case 0:
		*i = nil
		return nil
	default:
		return fmt.Errorf("$include must be a string or a list of strings")
	}
}

// Load reads path (resolving $include and expanding ${ENV_VAR} references),
// decodes it, and returns both the ready-to-use descriptor set and the
// failover policy.
func Load(path string) ([]carrier.ProviderDescriptor, FailoverPolicy, error) {
	doc, err := loadDocument(path, map[string]bool{})
	if err != nil {
		return nil, FailoverPolicy{}, err
	}

	descriptors := make([]carrier.ProviderDescriptor, 0, len(doc.Providers))
	for _, p := range doc.Providers {
		descriptors = append(descriptors, toDescriptor(p))
	}
	return descriptors, doc.Failover, nil
}

func toDescriptor(p ProviderConfig) carrier.ProviderDescriptor {
	regions := make(map[string]struct{}, len(p.Regions))
	for _, r := range p.Regions {
		regions[r] = struct{}{}
	}

	rawCaps := make([]carrier.Capability, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		regionSet := make(map[string]struct{}, len(c.Regions))
		for _, r := range c.Regions {
			regionSet[r] = struct{}{}
		}
		rawCaps = append(rawCaps, carrier.Capability{Feature: c.Feature, Supported: c.Supported, Regions: regionSet})
	}

	return carrier.ProviderDescriptor{
		ID:            p.ID,
		Name:          p.Name,
		Priority:      p.Priority,
		Enabled:       p.Enabled,
		Regions:       regions,
		Capabilities:  carrier.MergeCapabilities(rawCaps),
		BaseURL:       p.BaseURL,
		Timeout:       time.Duration(p.TimeoutMs) * time.Millisecond,
		RetryAttempts: p.RetryAttempts,
		RetryDelay:    time.Duration(p.RetryDelayMs) * time.Millisecond,
		RateLimits: carrier.RateLimits{
			PerSecond: p.RateLimits.PerSecond,
			PerMinute: p.RateLimits.PerMinute,
			PerHour:   p.RateLimits.PerHour,
		},
		Credentials: p.Credentials,
	}
}

// loadDocument reads path, decodes it into a Document, then recursively
// loads and merges every file it $includes underneath it. seen guards
// against include cycles by absolute path.
func loadDocument(path string, seen map[string]bool) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[absPath] {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	seen[absPath] = true
	defer delete(seen, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))

	doc, err := decodeDocument([]byte(expanded), absPath)
	if err != nil {
		return nil, err
	}

	if len(doc.Include) == 0 {
		return doc, nil
	}

	baseDir := filepath.Dir(absPath)
	merged := &Document{}
	for _, inc := range doc.Include {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(baseDir, incPath)
		}
		incDoc, err := loadDocument(incPath, seen)
		if err != nil {
			return nil, err
		}
		merged = mergeDocuments(merged, incDoc)
	}
	doc.Include = nil
	return mergeDocuments(merged, doc), nil
}

// decodeDocument parses raw bytes (YAML or JSON5, chosen by the file
// extension) into a Document. JSON5 is decoded generically first since the
// json5 package doesn't honor yaml struct tags, then re-marshaled to YAML so
// a single set of tags on Document/ProviderConfig serves both formats.
func decodeDocument(data []byte, pathHint string) (*Document, error) {
	format := strings.ToLower(filepath.Ext(pathHint))
	yamlBytes := data
	if format == ".json" || format == ".json5" {
		var generic map[string]any
		if err := json5.Unmarshal(data, &generic); err != nil {
			return nil, err
		}
		converted, err := yaml.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize json5 config: %w", err)
		}
		yamlBytes = converted
	}

	decoder := yaml.NewDecoder(bytes.NewReader(yamlBytes))
	decoder.KnownFields(true)
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: expected single document")
	}
	return &doc, nil
}

// mergeDocuments layers overlay on top of base: overlay's providers extend
// or override base's by id, and overlay's non-zero failover fields win,
// falling back to base's otherwise. This is a field-aware merge rather than
// a generic recursive map merge, so a one-element overlay provider list
// never clobbers the rest of base's providers the way blindly replacing a
// raw YAML sequence would.
func mergeDocuments(base, overlay *Document) *Document {
	return &Document{
		Providers: mergeProviderConfigs(base.Providers, overlay.Providers),
		Failover:  mergeFailoverPolicy(base.Failover, overlay.Failover),
	}
}

func mergeProviderConfigs(base, overlay []ProviderConfig) []ProviderConfig {
	result := append([]ProviderConfig(nil), base...)
	index := make(map[string]int, len(result))
	for i, p := range result {
		index[p.ID] = i
	}
	for _, p := range overlay {
		if i, ok := index[p.ID]; ok {
			result[i] = mergeProviderConfig(result[i], p)
			continue
		}
		index[p.ID] = len(result)
		result = append(result, p)
	}
	return result
}

// mergeProviderConfig overlays overlay's non-zero scalar fields onto base,
// concatenates Capabilities (duplicates across the two are resolved later
// by carrier.MergeCapabilities), lets a non-empty overlay.Regions entirely
// replace base's, and merges Credentials key by key (overlay wins).
func mergeProviderConfig(base, overlay ProviderConfig) ProviderConfig {
	merged := base
	if overlay.Name != "" {
		merged.Name = overlay.Name
	}
	if overlay.Priority != 0 {
		merged.Priority = overlay.Priority
	}
	merged.Enabled = overlay.Enabled || base.Enabled
	if len(overlay.Regions) > 0 {
		merged.Regions = overlay.Regions
	}
	if len(overlay.Capabilities) > 0 {
		merged.Capabilities = append(append([]CapabilityConfig(nil), base.Capabilities...), overlay.Capabilities...)
	}
	if overlay.BaseURL != "" {
		merged.BaseURL = overlay.BaseURL
	}
	if overlay.TimeoutMs != 0 {
		merged.TimeoutMs = overlay.TimeoutMs
	}
	if overlay.RetryAttempts != 0 {
		merged.RetryAttempts = overlay.RetryAttempts
	}
	if overlay.RetryDelayMs != 0 {
		merged.RetryDelayMs = overlay.RetryDelayMs
	}
	if overlay.RateLimits != (RateLimitsConfig{}) {
		merged.RateLimits = overlay.RateLimits
	}
	if len(overlay.Credentials) > 0 {
		creds := make(map[string]string, len(base.Credentials)+len(overlay.Credentials))
		for k, v := range base.Credentials {
			creds[k] = v
		}
		for k, v := range overlay.Credentials {
			creds[k] = v
		}
		merged.Credentials = creds
	}
	return merged
}

func mergeFailoverPolicy(base, overlay FailoverPolicy) FailoverPolicy {
	merged := base
	if overlay.MaxRetries != 0 {
		merged.MaxRetries = overlay.MaxRetries
	}
	if overlay.RetryDelayMs != 0 {
		merged.RetryDelayMs = overlay.RetryDelayMs
	}
	if overlay.HealthCheckIntervalMs != 0 {
		merged.HealthCheckIntervalMs = overlay.HealthCheckIntervalMs
	}
	if overlay.FailoverThresholdPercent != 0 {
		merged.FailoverThresholdPercent = overlay.FailoverThresholdPercent
	}
	if overlay.CircuitBreakerTimeoutMs != 0 {
		merged.CircuitBreakerTimeoutMs = overlay.CircuitBreakerTimeoutMs
	}
	return merged
}
