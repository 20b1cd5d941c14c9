package observability

import (
	"context"
	"testing"
)

func TestClampRatio(t *testing.T) {
	cases := map[string]float64{
		"":     defaultSampleRatio,
		"0.5":  0.5,
		"-1":   0,
		"7":    1,
		"nope": defaultSampleRatio,
	}
	for raw, want := range cases {
		if got := clampRatio(raw); got != want {
			t.Fatalf("clampRatio(%q): want=%v got=%v", raw, want, got)
		}
	}
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "on")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "authorization=Bearer x, bad, =empty,team=infographic")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.25")

	cfg := TracingConfigFromEnv("svc", "test")
	if !cfg.Enabled || cfg.Endpoint != "collector:4318" || cfg.SampleRatio != 0.25 {
		t.Fatalf("config: got=%+v", cfg)
	}
	if len(cfg.Headers) != 2 || cfg.Headers["authorization"] != "Bearer x" || cfg.Headers["team"] != "infographic" {
		t.Fatalf("headers: got=%v", cfg.Headers)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown := InitTracing(context.Background(), nil, TracingConfig{})
	if shutdown == nil {
		t.Fatalf("expected a shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
