package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/carrierdispatch/internal/carrier"
	"github.com/haasonsaas/carrierdispatch/internal/carrierconfig"
	"github.com/haasonsaas/carrierdispatch/internal/carriermetrics"
	"github.com/haasonsaas/carrierdispatch/internal/obslog"
	"github.com/haasonsaas/carrierdispatch/internal/providers"
)

// adapterFactory maps a provider descriptor to its concrete adapter, chosen
// by the provider ID configured in the descriptor set. Unrecognized IDs fall
// back to MockAdapter so an operator can stand up a demo config without
// real carrier credentials.
//
// Each descriptor gets its own *http.Client built from its own configured
// timeoutMs (d.Timeout) — carriers are never forced to share one adapter's
// deadline with another's, per spec.md §5/§6.
func adapterFactory() carrier.AdapterFactory {
	return func(d carrier.ProviderDescriptor) (carrier.Adapter, error) {
		doer := providers.NewHTTPClient(d.Timeout)
		switch {
		case strings.HasPrefix(d.ID, "twilio"):
			return providers.NewTwilioAdapter(d, doer), nil
		case strings.HasPrefix(d.ID, "bandwidth"):
			return providers.NewBandwidthAdapter(d, doer), nil
		case strings.HasPrefix(d.ID, "exotel"):
			return providers.NewExotelAdapter(d, doer), nil
		case strings.HasPrefix(d.ID, "airtel"):
			return providers.NewAirtelAdapter(d, doer), nil
		case strings.HasPrefix(d.ID, "vonage"):
			return providers.NewVonageAdapter(d, doer), nil
		default:
			return providers.NewMockAdapter(d, 0, int64(len(d.ID))+1), nil
		}
	}
}

func runServe(cmd *cobra.Command, configPath, addr string, debug bool) error {
	level := "info"
	if debug {
		level = "debug"
	}
	logger := obslog.New(obslog.Config{Level: level})

	descriptors, policy, err := carrierconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics := carriermetrics.New(prometheus.DefaultRegisterer)

	breakerConfig := breakerConfigFromPolicy(policy)
	breakerConfig.OnStateChange = func(providerID string, from, to carrier.BreakerState) {
		metrics.ObserveBreakerTransition(providerID, from, to)
		logger.Info(context.Background(), "breaker transition", "provider_id", providerID, "from", from, "to", to)
	}

	registry, err := carrier.NewRegistry(descriptors, adapterFactory(), breakerConfig)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	dispatcher := carrier.NewDispatcher(registry, carrier.DispatcherConfig{
		CacheTTL: carrier.DefaultCacheTTL,
		OnDispatch: func(providerID, operation string, success bool, duration time.Duration) {
			metrics.ObserveDispatch(providerID, operation, success, duration)
			logger.Info(context.Background(), "dispatch",
				"provider_id", providerID, "operation", operation, "success", success, "duration_ms", duration.Milliseconds())
		},
	})

	monitor := carrier.NewHealthMonitor(registry, carrier.HealthMonitorConfig{
		Interval: time.Duration(policy.HealthCheckIntervalMs) * time.Millisecond,
		OnProbe: func(providerID string, healthy bool, duration time.Duration) {
			logger.Debug(context.Background(), "health probe", "provider_id", providerID, "healthy", healthy, "duration_ms", duration.Milliseconds())
			if h, ok := registry.Health(providerID); ok {
				metrics.SetProviderUptime(providerID, h.UptimePercent)
			}
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	monitor.Start(ctx)
	defer monitor.Stop()

	srv := &http.Server{
		Addr:    addr,
		Handler: logger.Middleware(newRouter(dispatcher, metrics)),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "carrierd listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func breakerConfigFromPolicy(policy carrierconfig.FailoverPolicy) carrier.BreakerConfig {
	cfg := carrier.DefaultBreakerConfig()
	if policy.CircuitBreakerTimeoutMs > 0 {
		cfg.RecoveryTimeout = time.Duration(policy.CircuitBreakerTimeoutMs) * time.Millisecond
	}
	if policy.FailoverThresholdPercent > 0 {
		cfg.ErrorThresholdPercent = float64(policy.FailoverThresholdPercent)
	}
	return cfg
}

func newRouter(d *carrier.Dispatcher, m *carriermetrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/numbers/search", handleSearch(d, m))
	mux.HandleFunc("/v1/numbers/reserve", handleReserve(d))
	mux.HandleFunc("/v1/numbers/purchase", handlePurchase(d))
	mux.HandleFunc("/v1/numbers/port", handlePort(d))
	mux.HandleFunc("/v1/numbers/available", handleAvailability(d))
	mux.HandleFunc("/v1/health", handleHealth(d))
	mux.Handle("/v1/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var provErr *carrier.ProviderError
	var invalidErr *carrier.InvalidRequestError
	var unknownErr *carrier.UnknownProviderError
	var allFailedErr *carrier.AllProvidersFailedError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &invalidErr):
		status = http.StatusBadRequest
	case errors.As(err, &unknownErr):
		status = http.StatusNotFound
	case errors.As(err, &allFailedErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &provErr):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func handleSearch(d *carrier.Dispatcher, m *carriermetrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req carrier.NumberSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		resp, err := d.SearchNumbers(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		if resp.Cached {
			m.ObserveCacheHit()
		} else {
			m.ObserveCacheMiss()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleReserve(d *carrier.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req carrier.ReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		resp, err := d.ReserveNumber(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePurchase(d *carrier.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req carrier.PurchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		resp, err := d.PurchaseNumber(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePort(d *carrier.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req carrier.PortingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		resp, err := d.PortNumber(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAvailability(d *carrier.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phoneNumber := r.URL.Query().Get("phoneNumber")
		if phoneNumber == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phoneNumber query param is required"})
			return
		}
		result, err := d.CheckNumberAvailability(r.Context(), phoneNumber)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleHealth(d *carrier.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers": d.ProviderHealth(),
		})
	}
}
