package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http"
	httpH "github.com/yungbote/infographic-backend/internal/http/handlers"
	httpMW "github.com/yungbote/infographic-backend/internal/http/middleware"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimitMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Analysis   *httpH.AnalysisHandler
	Generation *httpH.GenerationHandler
	Embedding  *httpH.EmbeddingHandler
	Blob       *httpH.BlobHandler
	Style      *httpH.StyleHandler
	History    *httpH.HistoryHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, clients Clients, svc Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:      httpMW.NewAuthMiddleware(log, svc.Verifier),
		RateLimit: httpMW.NewRateLimitMiddleware(log, clients.Limiter, cfg.RateLimitPerMinute, clients.Metrics),
	}
}

func wireHandlers(log *logger.Logger, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Analysis:   httpH.NewAnalysisHandler(log, svc.Documents, svc.Styles, svc.Resolver),
		Generation: httpH.NewGenerationHandler(log, svc.Images, svc.Optimizer, svc.Resolver),
		Embedding:  httpH.NewEmbeddingHandler(log, svc.Embeddings),
		Blob:       httpH.NewBlobHandler(log, svc.Blobs),
		Style:      httpH.NewStyleHandler(log, svc.Library, svc.Embeddings, svc.Backfill, svc.Resolver),
		History:    httpH.NewHistoryHandler(log, svc.History, svc.Resolver),
	}
}

func wireRouter(log *logger.Logger, cfg Config, clients Clients, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.CORSAllowOrigin,
		Metrics:             clients.Metrics,
		AuthMiddleware:      middleware.Auth,
		RateLimitMiddleware: middleware.RateLimit,
		HealthHandler:       handlers.Health,
		AnalysisHandler:     handlers.Analysis,
		GenerationHandler:   handlers.Generation,
		EmbeddingHandler:    handlers.Embedding,
		BlobHandler:         handlers.Blob,
		StyleHandler:        handlers.Style,
		HistoryHandler:      handlers.History,
	})
}
