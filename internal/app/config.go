package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/platform/envutil"
)

// Config is loaded from an optional YAML file (APP_CONFIG_FILE) and then
// overridden by environment variables.
type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	OIDCTenantID string `yaml:"oidc_tenant_id"`
	OIDCClientID string `yaml:"oidc_client_id"`
	OIDCJWKSURL  string `yaml:"oidc_jwks_url"`
	AuthBypass   bool   `yaml:"auth_bypass"`

	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresName     string `yaml:"postgres_name"`
	PostgresSSL      string `yaml:"postgres_ssl"`

	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiBaseURL    string `yaml:"gemini_base_url"`
	GeminiTextModel  string `yaml:"gemini_text_model"`
	GeminiImageModel string `yaml:"gemini_image_model"`
	GeminiEmbedModel string `yaml:"gemini_embed_model"`
	EmbeddingDim     int    `yaml:"embedding_dim"`

	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	RateLimitRedisAddr string `yaml:"rate_limit_redis_addr"`

	StorageAccount           string   `yaml:"storage_account"`
	StoragePrivateKey        string   `yaml:"storage_private_key"`
	StorageCredentials       string   `yaml:"storage_credentials"`
	StorageDefaultContainer  string   `yaml:"storage_default_container"`
	StorageAllowedContainers []string `yaml:"storage_allowed_containers"`
	ObjectStorageMode        string   `yaml:"object_storage_mode"`
	StorageEmulatorHost      string   `yaml:"storage_emulator_host"`

	DefaultTenantName string   `yaml:"default_tenant_name"`
	TenantStrategy    string   `yaml:"tenant_strategy"`
	CORSAllowOrigin   []string `yaml:"cors_allow_origin"`

	AITimeoutSeconds      int   `yaml:"ai_timeout_seconds"`
	StorageTimeoutSeconds int   `yaml:"storage_timeout_seconds"`
	FetchTimeoutSeconds   int   `yaml:"fetch_timeout_seconds"`
	MaxFetchBytes         int64 `yaml:"max_fetch_bytes"`
	BackfillConcurrency   int   `yaml:"backfill_concurrency"`
}

func defaultConfig() Config {
	return Config{
		Port:                  "8080",
		LogMode:               "development",
		PostgresPort:          "5432",
		PostgresSSL:           "disable",
		EmbeddingDim:          768,
		RateLimitPerMinute:    60,
		DefaultTenantName:     "Default Tenant",
		TenantStrategy:        "default",
		CORSAllowOrigin:       []string{"*"},
		AITimeoutSeconds:      120,
		StorageTimeoutSeconds: 30,
		FetchTimeoutSeconds:   30,
		MaxFetchBytes:         20 << 20,
		BackfillConcurrency:   4,
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	c.Port = envutil.String("PORT", c.Port)
	c.LogMode = envutil.String("LOG_MODE", c.LogMode)

	c.OIDCTenantID = envutil.String("OIDC_TENANT_ID", c.OIDCTenantID)
	c.OIDCClientID = envutil.String("OIDC_CLIENT_ID", c.OIDCClientID)
	c.OIDCJWKSURL = envutil.String("OIDC_JWKS_URL", c.OIDCJWKSURL)
	c.AuthBypass = envutil.Bool("AUTH_BYPASS", c.AuthBypass)

	c.PostgresDSN = envutil.String("POSTGRES_DSN", c.PostgresDSN)
	c.PostgresHost = envutil.String("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = envutil.String("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = envutil.String("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = envutil.String("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresName = envutil.String("POSTGRES_NAME", c.PostgresName)
	c.PostgresSSL = envutil.String("POSTGRES_SSL", c.PostgresSSL)

	c.GeminiAPIKey = envutil.String("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiBaseURL = envutil.String("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.GeminiTextModel = envutil.String("GEMINI_TEXT_MODEL", c.GeminiTextModel)
	c.GeminiImageModel = envutil.String("GEMINI_IMAGE_MODEL", c.GeminiImageModel)
	c.GeminiEmbedModel = envutil.String("GEMINI_EMBED_MODEL", c.GeminiEmbedModel)
	c.EmbeddingDim = envutil.Int("EMBEDDING_DIM", c.EmbeddingDim)

	c.RateLimitPerMinute = envutil.Int("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.RateLimitRedisAddr = envutil.String("RATE_LIMIT_REDIS_ADDR", c.RateLimitRedisAddr)

	c.StorageAccount = envutil.String("STORAGE_ACCOUNT", c.StorageAccount)
	c.StoragePrivateKey = envutil.String("STORAGE_PRIVATE_KEY", c.StoragePrivateKey)
	c.StorageCredentials = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", c.StorageCredentials)
	c.StorageDefaultContainer = envutil.String("STORAGE_DEFAULT_CONTAINER", c.StorageDefaultContainer)
	c.StorageAllowedContainers = envutil.List("STORAGE_ALLOWED_CONTAINERS", c.StorageAllowedContainers)
	c.ObjectStorageMode = envutil.String("OBJECT_STORAGE_MODE", c.ObjectStorageMode)
	c.StorageEmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", c.StorageEmulatorHost)

	c.DefaultTenantName = envutil.String("DEFAULT_TENANT_NAME", c.DefaultTenantName)
	c.TenantStrategy = envutil.String("TENANT_STRATEGY", c.TenantStrategy)
	c.CORSAllowOrigin = envutil.List("CORS_ALLOW_ORIGIN", c.CORSAllowOrigin)

	c.AITimeoutSeconds = envutil.Int("AI_TIMEOUT_SECONDS", c.AITimeoutSeconds)
	c.StorageTimeoutSeconds = envutil.Int("STORAGE_TIMEOUT_SECONDS", c.StorageTimeoutSeconds)
	c.FetchTimeoutSeconds = envutil.Int("FETCH_TIMEOUT_SECONDS", c.FetchTimeoutSeconds)
	c.MaxFetchBytes = envutil.Int64("MAX_FETCH_BYTES", c.MaxFetchBytes)
	c.BackfillConcurrency = envutil.Int("BACKFILL_CONCURRENCY", c.BackfillConcurrency)
}

func (c Config) validate() error {
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	switch strings.ToLower(c.TenantStrategy) {
	case "default", "claim":
	default:
		return fmt.Errorf("TENANT_STRATEGY must be default or claim, got %q", c.TenantStrategy)
	}
	return nil
}

func (c Config) AITimeout() time.Duration      { return seconds(c.AITimeoutSeconds, 120) }
func (c Config) StorageTimeout() time.Duration { return seconds(c.StorageTimeoutSeconds, 30) }
func (c Config) FetchTimeout() time.Duration   { return seconds(c.FetchTimeoutSeconds, 30) }

// StorageBuckets lists every bucket the server treats as its own.
func (c Config) StorageBuckets() []string {
	out := make([]string, 0, 1+len(c.StorageAllowedContainers))
	seen := map[string]bool{}
	for _, b := range append([]string{c.StorageDefaultContainer}, c.StorageAllowedContainers...) {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
