package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/infographic-backend/internal/http/handlers"
	httpMW "github.com/yungbote/infographic-backend/internal/http/middleware"
	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/observability"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware      *httpMW.AuthMiddleware
	RateLimitMiddleware *httpMW.RateLimitMiddleware

	HealthHandler     *httpH.HealthHandler
	AnalysisHandler   *httpH.AnalysisHandler
	GenerationHandler *httpH.GenerationHandler
	EmbeddingHandler  *httpH.EmbeddingHandler
	BlobHandler       *httpH.BlobHandler
	StyleHandler      *httpH.StyleHandler
	HistoryHandler    *httpH.HistoryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "infographic-backend"
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.PreflightNoContent())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	r.NoRoute(func(c *gin.Context) {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
	})
	r.NoMethod(func(c *gin.Context) {
		response.RespondError(c, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	// Public
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.RateLimitMiddleware != nil {
			protected.Use(cfg.RateLimitMiddleware.Limit())
		}

		// Analysis
		if cfg.AnalysisHandler != nil {
			protected.POST("/analyze-document", cfg.AnalysisHandler.AnalyzeDocument)
			protected.POST("/analyze-style", cfg.AnalysisHandler.AnalyzeStyle)
		}

		// Generation
		if cfg.GenerationHandler != nil {
			protected.POST("/generate-images", cfg.GenerationHandler.GenerateImages)
			protected.POST("/optimize-prompt", cfg.GenerationHandler.OptimizePrompt)
		}

		if cfg.EmbeddingHandler != nil {
			protected.POST("/embeddings", cfg.EmbeddingHandler.CreateEmbedding)
		}

		// Upload credentials
		if cfg.BlobHandler != nil {
			protected.POST("/blob-sas", cfg.BlobHandler.IssueUploadCredential)
		}

		// Style library
		if cfg.StyleHandler != nil {
			protected.GET("/styles", cfg.StyleHandler.ListStyles)
			protected.POST("/styles", cfg.StyleHandler.CreateStyle)
			protected.DELETE("/styles/:id", cfg.StyleHandler.DeleteStyle)
			protected.POST("/styles/search", cfg.StyleHandler.SearchStyles)
			protected.GET("/styles/search", cfg.StyleHandler.SearchStyles)
			protected.POST("/styles-backfill", cfg.StyleHandler.BackfillEmbeddings)
		}

		// History
		if cfg.HistoryHandler != nil {
			protected.GET("/history", cfg.HistoryHandler.ListHistory)
			protected.POST("/history", cfg.HistoryHandler.CreateHistory)
			protected.GET("/history/:id", cfg.HistoryHandler.GetHistory)
			protected.DELETE("/history/:id", cfg.HistoryHandler.DeleteHistory)
		}
	}

	return r
}
