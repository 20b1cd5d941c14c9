package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", "")
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.EmbeddingDim != 768 || cfg.RateLimitPerMinute != 60 {
		t.Fatalf("defaults: got=%+v", cfg)
	}
	if cfg.AITimeout() != 120*time.Second || cfg.FetchTimeout() != 30*time.Second {
		t.Fatalf("timeouts: ai=%s fetch=%s", cfg.AITimeout(), cfg.FetchTimeout())
	}
	if !reflect.DeepEqual(cfg.CORSAllowOrigin, []string{"*"}) {
		t.Fatalf("cors default: got=%v", cfg.CORSAllowOrigin)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := []byte(`
port: "9090"
embedding_dim: 1536
storage_default_container: uploads
storage_allowed_containers: [previews, uploads]
tenant_strategy: claim
rate_limit_per_minute: 10
`)
	if err := os.WriteFile(path, yamlBody, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "25")
	t.Setenv("CORS_ALLOW_ORIGIN", "https://a.example, https://b.example")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.EmbeddingDim != 1536 || cfg.TenantStrategy != "claim" {
		t.Fatalf("file values: got=%+v", cfg)
	}
	if cfg.RateLimitPerMinute != 25 {
		t.Fatalf("env override: want=25 got=%d", cfg.RateLimitPerMinute)
	}
	if !reflect.DeepEqual(cfg.CORSAllowOrigin, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("cors: got=%v", cfg.CORSAllowOrigin)
	}
	if got := cfg.StorageBuckets(); !reflect.DeepEqual(got, []string{"uploads", "previews"}) {
		t.Fatalf("buckets: got=%v", got)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", "")
	t.Setenv("TENANT_STRATEGY", "round-robin")
	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("expected invalid tenant strategy error")
	}

	t.Setenv("TENANT_STRATEGY", "")
	t.Setenv("EMBEDDING_DIM", "-3")
	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("expected invalid embedding dim error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
