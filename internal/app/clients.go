package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/infographic-backend/internal/data/db"
	"github.com/yungbote/infographic-backend/internal/observability"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/ratelimit"
	"github.com/yungbote/infographic-backend/internal/platform/gcp"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
)

type Clients struct {
	Postgres *db.PostgresService
	Gemini   gemini.Client
	Buckets  gcp.BucketService
	Signer   gcp.URLSigner
	Redis    *redis.Client
	Limiter  ratelimit.Limiter
	Metrics  *observability.Metrics
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	metrics := observability.NewMetrics()

	// Postgres
	pg, err := db.NewPostgresService(db.PostgresConfig{
		DSN:      cfg.PostgresDSN,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Name:     cfg.PostgresName,
		SSLMode:  cfg.PostgresSSL,
	}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := pg.EnsureVectorIndex(cfg.EmbeddingDim); err != nil {
		// Existing rows with another dimension block the ALTER; search still
		// works without the index, only slower.
		log.Warn("Vector index not ensured", "dim", cfg.EmbeddingDim, "error", err)
	}

	// Gemini
	ai, err := gemini.NewClient(log, gemini.Config{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  cfg.GeminiTextModel,
		ImageModel: cfg.GeminiImageModel,
		EmbedModel: cfg.GeminiEmbedModel,
		EmbedDim:   cfg.EmbeddingDim,
		Timeout:    cfg.AITimeout(),
		MaxRetries: 3,
	}, metrics)
	if err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	}

	// Gcs
	buckets, err := resolveBucketService(log, cfg)
	if err != nil {
		_ = pg.Close()
		return Clients{}, err
	}
	signer, err := resolveURLSigner(log, cfg)
	if err != nil {
		closeBuckets(buckets)
		_ = pg.Close()
		return Clients{}, err
	}

	// Rate limiting
	var (
		rdb     *redis.Client
		limiter ratelimit.Limiter = ratelimit.NewInMemory(time.Minute)
	)
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		rdb, err = newRedisClient(addr)
		if err != nil {
			closeBuckets(buckets)
			_ = pg.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if pingErr := rdb.Ping(ctx).Err(); pingErr != nil {
			log.Warn("Redis not reachable; limiter falls back to process memory until it is", "addr", addr, "error", pingErr)
		}
		cancel()
		limiter = ratelimit.NewRedis(rdb, time.Minute, log)
		log.Info("Rate limiter using redis", "addr", addr)
	}

	return Clients{
		Postgres: pg,
		Gemini:   ai,
		Buckets:  buckets,
		Signer:   signer,
		Redis:    rdb,
		Limiter:  limiter,
		Metrics:  metrics,
	}, nil
}

// newRedisClient accepts a redis:// URL or a bare host:port.
func newRedisClient(addr string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func closeBuckets(b gcp.BucketService) {
	if b != nil {
		_ = b.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	closeBuckets(c.Buckets)
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
}
