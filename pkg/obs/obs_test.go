package obs

import (
	"context"
	"errors"
	"testing"
)

func TestNewDisabledByDefaultIsSafeToUse(t *testing.T) {
	p, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Enabled() {
		t.Fatal("expected disabled provider with empty endpoint")
	}

	ctx, done := p.StartRESTSpan(context.Background(), "GET", "/backends/echo")
	done(nil)

	ctx, doneChange := p.StartApplyChangeSpan(ctx, "create", "backend:echo")
	doneChange(errors.New("boom"))

	p.RecordPlanCounts(context.Background(), 1, 2, 3, 4)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestConfigFromEnvDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := ConfigFromEnv("1.0.0")
	if cfg.Endpoint != "" {
		t.Fatalf("expected empty endpoint, got %q", cfg.Endpoint)
	}
}

func TestConfigFromEnvReadsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	cfg := ConfigFromEnv("1.0.0")
	if cfg.Endpoint != "localhost:4317" || !cfg.Insecure {
		t.Fatalf("got = %+v", cfg)
	}
}
