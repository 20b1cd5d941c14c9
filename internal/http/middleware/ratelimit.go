package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/observability"
	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/ratelimit"
)

type RateLimitMiddleware struct {
	log     *logger.Logger
	limiter ratelimit.Limiter
	limit   int
	metrics *observability.Metrics
	now     func() time.Time
}

func NewRateLimitMiddleware(log *logger.Logger, limiter ratelimit.Limiter, limitPerMinute int, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		log:     log.With("middleware", "RateLimitMiddleware"),
		limiter: limiter,
		limit:   limitPerMinute,
		metrics: metrics,
		now:     time.Now,
	}
}

// Limit must run after RequireAuth so verified callers are keyed by identity.
func (rl *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter == nil || rl.limit <= 0 {
			c.Next()
			return
		}
		key := RateLimitKey(c.Request)
		d := rl.limiter.Allow(c.Request.Context(), key, rl.limit)
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			c.Next()
			return
		}
		retry := int(math.Ceil(d.RetryAfter(rl.now()).Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		rl.metrics.IncRateLimited(c.FullPath())
		rl.log.Warn("rate limited", "key", key, "count", d.Count, "limit", d.Limit)
		response.RespondError(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Errorf("rate limit of %d requests per minute exceeded, retry in %ds", d.Limit, retry))
	}
}

// RateLimitKey derives the bucket for a request: the verified subject or email
// first, then the client address headers in order of trust.
func RateLimitKey(r *http.Request) string {
	if id := ctxutil.GetIdentity(r.Context()); id != nil {
		if s := strings.TrimSpace(id.Subject); s != "" {
			return "user:" + s
		}
		if e := strings.ToLower(strings.TrimSpace(id.PrimaryEmail())); e != "" {
			return "user:" + e
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return "ip:" + first
		}
	}
	for _, h := range []string{"X-Client-IP", "X-Real-IP"} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return "ip:" + v
		}
	}
	return "ip:unknown"
}
