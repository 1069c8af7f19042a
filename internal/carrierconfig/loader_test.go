package carrierconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_BasicDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "providers.yaml", `
providers:
  - id: twilio
    name: Twilio
    priority: 1
    enabled: true
    regions: ["US", "*"]
    capabilities:
      - feature: number_search
        supported: true
      - feature: number_porting
        supported: true
        regions: ["US"]
    baseUrl: https://api.twilio.test
    timeoutMs: 5000
    retryAttempts: 3
    retryDelayMs: 200
    rateLimits:
      perSecond: 10
    credentials:
      authToken: ${TWILIO_TOKEN}
failover:
  maxRetries: 3
  healthCheckIntervalMs: 60000
`)
	os.Setenv("TWILIO_TOKEN", "secret-value")
	defer os.Unsetenv("TWILIO_TOKEN")

	descriptors, policy, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(descriptors))
	}
	d := descriptors[0]
	if d.ID != "twilio" || d.Priority != 1 || !d.Enabled {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Credentials["authToken"] != "secret-value" {
		t.Fatalf("expected env expansion, got %q", d.Credentials["authToken"])
	}
	if !d.SupportsFeature("number_search", "IN") {
		t.Fatalf("expected unrestricted number_search support")
	}
	if d.SupportsFeature("number_porting", "IN") {
		t.Fatalf("expected number_porting restricted to US")
	}
	if policy.MaxRetries != 3 || policy.HealthCheckIntervalMs != 60000 {
		t.Fatalf("unexpected policy: %+v", policy)
	}
}

func TestLoad_IncludeMergesOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
providers:
  - id: twilio
    priority: 5
    enabled: false
    regions: ["*"]
`)
	path := writeFile(t, dir, "main.yaml", `
$include: base.yaml
failover:
  maxRetries: 5
`)

	descriptors, policy, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(descriptors) != 1 || descriptors[0].Priority != 5 {
		t.Fatalf("expected included descriptor to survive merge, got %+v", descriptors)
	}
	if policy.MaxRetries != 5 {
		t.Fatalf("expected overlay failover policy, got %+v", policy)
	}
}

func TestLoad_IncludeCycleDetected(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	if err := os.WriteFile(a, []byte("$include: b.yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("$include: a.yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Load(a); err == nil {
		t.Fatalf("expected include cycle error")
	}
}
