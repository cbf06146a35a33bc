package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestSetupDisabledReturnsNoHandler(t *testing.T) {
	rec, handler, shutdown, err := Setup(context.Background(), TelemetryConfig{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
	if rec == nil {
		t.Fatalf("expected recorder")
	}
	if handler != nil {
		t.Fatalf("expected nil handler when disabled")
	}
	if shutdown == nil {
		t.Fatalf("expected shutdown function")
	}
}

func TestSetupEnabledInitializesRecorderAndHandler(t *testing.T) {
	rec, handler, shutdown, err := Setup(context.Background(), TelemetryConfig{
		Enabled:     true,
		ServiceName: "epl-fixtures-service",
		// No OTLP endpoint; uses Prometheus exporter only.
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec == nil {
		t.Fatalf("expected recorder")
	}
	if handler == nil {
		t.Fatalf("expected handler when enabled")
	}
	if shutdown == nil {
		t.Fatalf("expected shutdown function")
	}

	// Exercise otel-backed recorders to ensure no panic.
	rec.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	rec.RecordPollerCycle(time.Millisecond, nil)
	rec.RecordProviderAttempt("fpl", time.Millisecond, nil)
	rec.RecordRateLimit("fpl", time.Second)
	rec.RecordFetchOrigin("fixtures", "not_modified")
	rec.RecordTierChange("NORMAL", "IMMINENT")
	rec.RecordBroadcast(2)
	rec.RecordLiveClients(1)

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupWiresOTLPReaderWhenEndpointSet(t *testing.T) {
	orig := otlpReaderFactory
	t.Cleanup(func() { otlpReaderFactory = orig })

	var gotEndpoint string
	var gotInterval time.Duration
	otlpReaderFactory = func(_ context.Context, endpoint string, _ bool, interval time.Duration) (sdkmetric.Reader, error) {
		gotEndpoint, gotInterval = endpoint, interval
		return sdkmetric.NewManualReader(), nil
	}

	_, _, shutdown, err := Setup(context.Background(), TelemetryConfig{
		Enabled:        true,
		OtlpEndpoint:   "collector:4318",
		ExportInterval: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if gotEndpoint != "collector:4318" || gotInterval != 30*time.Second {
		t.Fatalf("unexpected otlp reader args %q %s", gotEndpoint, gotInterval)
	}
}

func TestSetupPropagatesOTLPReaderError(t *testing.T) {
	orig := otlpReaderFactory
	t.Cleanup(func() { otlpReaderFactory = orig })

	boom := errors.New("dial failed")
	otlpReaderFactory = func(context.Context, string, bool, time.Duration) (sdkmetric.Reader, error) {
		return nil, boom
	}

	if _, _, _, err := Setup(context.Background(), TelemetryConfig{Enabled: true, OtlpEndpoint: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected reader error, got %v", err)
	}
}
