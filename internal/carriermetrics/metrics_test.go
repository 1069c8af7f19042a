package carriermetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.WithLabelValues(labels...).(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetrics_ObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDispatch("twilio", "search_numbers", true, 10*time.Millisecond)
	m.ObserveDispatch("twilio", "search_numbers", false, 5*time.Millisecond)

	if got := counterValue(t, m.DispatchCounter, "twilio", "search_numbers", "success"); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := counterValue(t, m.DispatchCounter, "twilio", "search_numbers", "error"); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}

func TestMetrics_ObserveBreakerTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBreakerTransition("bandwidth", carrier.BreakerClosed, carrier.BreakerOpen)

	gm := &dto.Metric{}
	if err := m.BreakerState.WithLabelValues("bandwidth").(prometheus.Metric).Write(gm); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if gm.GetGauge().GetValue() != 2 {
		t.Fatalf("expected gauge value 2 (open), got %v", gm.GetGauge().GetValue())
	}
}

func TestMetrics_CacheLookups(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCacheHit()
	m.ObserveCacheHit()
	m.ObserveCacheMiss()

	if got := counterValue(t, m.CacheLookups, "hit"); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := counterValue(t, m.CacheLookups, "miss"); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
}
