package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter shares counters between instances through Redis. Any Redis
// failure degrades to the in-memory fallback so requests keep flowing.
type RedisLimiter struct {
	client   redis.UniversalClient
	window   time.Duration
	prefix   string
	timeout  time.Duration
	fallback *InMemoryLimiter
	log      *logger.Logger
}

func NewRedis(client redis.UniversalClient, window time.Duration, log *logger.Logger) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLimiter{
		client:   client,
		window:   window,
		prefix:   "infographic:rl:",
		timeout:  500 * time.Millisecond,
		fallback: NewInMemory(window),
		log:      log.With("component", "RedisLimiter"),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	if l.client == nil {
		return l.fallback.Allow(ctx, key, limit)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	res, err := rateLimitScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Result()
	if err != nil {
		l.log.Warn("redis rate limit failed, using in-memory fallback", "error", err)
		return l.fallback.Allow(ctx, key, limit)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return l.fallback.Allow(ctx, key, limit)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.window.Milliseconds()
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= limit,
		Count:     int(count),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Now().UTC().Add(time.Duration(ttlMs) * time.Millisecond),
	}
}
