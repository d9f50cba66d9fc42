package observability_test

import (
	"context"
	"testing"

	"spinarena/server/internal/observability"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := observability.Setup(context.Background(), observability.Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	shutdown, err := observability.Setup(context.Background(), observability.Config{Endpoint: "http://192.0.2.1:4318"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestTracingEnabled(t *testing.T) {
	if (observability.Config{}).TracingEnabled() {
		t.Fatalf("expected tracing disabled without endpoint")
	}
	if !(observability.Config{Endpoint: "http://localhost:4318"}).TracingEnabled() {
		t.Fatalf("expected tracing enabled with endpoint")
	}
}
