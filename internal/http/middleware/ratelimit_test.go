package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/observability"
	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/ratelimit"
)

func TestRateLimitKey(t *testing.T) {
	cases := []struct {
		name    string
		id      *ctxutil.Identity
		headers map[string]string
		want    string
	}{
		{"subject wins", &ctxutil.Identity{Subject: "sub-1", Email: "a@b.c"}, map[string]string{"X-Forwarded-For": "1.1.1.1"}, "user:sub-1"},
		{"email when no subject", &ctxutil.Identity{Email: "A@B.c"}, nil, "user:a@b.c"},
		{"first forwarded entry", nil, map[string]string{"X-Forwarded-For": " 9.9.9.9 , 10.0.0.1", "X-Real-IP": "8.8.8.8"}, "ip:9.9.9.9"},
		{"client ip", nil, map[string]string{"X-Client-IP": "7.7.7.7", "X-Real-IP": "8.8.8.8"}, "ip:7.7.7.7"},
		{"real ip", nil, map[string]string{"X-Real-IP": "8.8.8.8"}, "ip:8.8.8.8"},
		{"unknown", nil, nil, "ip:unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if tc.id != nil {
				req = req.WithContext(ctxutil.WithIdentity(req.Context(), tc.id))
			}
			if got := RateLimitKey(req); got != tc.want {
				t.Fatalf("key: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewInMemory(time.Minute).WithClock(func() time.Time { return now })
	rl := NewRateLimitMiddleware(logger.Nop(), limiter, 2, observability.NewMetrics())
	rl.now = func() time.Time { return now.Add(20500 * time.Millisecond) }

	r := gin.New()
	r.Use(rl.Limit())
	r.GET("/styles", func(c *gin.Context) { c.Status(http.StatusOK) })

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/styles", nil)
		req.Header.Set("X-Real-IP", "5.5.5.5")
		r.ServeHTTP(rec, req)
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("request %d: want=%d got=%d", i, http.StatusOK, rec.Code)
		}
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status: want=%d got=%d", http.StatusTooManyRequests, rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "40" {
		t.Fatalf("retry-after: want=%q got=%q", "40", got)
	}
}
