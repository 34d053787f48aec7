package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mumble-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mumble-backend/internal/http/middleware"
	"github.com/yungbote/mumble-backend/internal/observability"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/ratelimit"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	Metrics     *observability.Metrics
	Limiter     ratelimit.Limiter

	// StaticDir is served under StaticPrefix when blobs live on local disk.
	StaticDir    string
	StaticPrefix string

	DeviceMiddleware *httpMW.DeviceMiddleware

	AudioHandler       *httpH.AudioHandler
	EnvironmentHandler *httpH.EnvironmentHandler
	ImageHandler       *httpH.ImageHandler
	PreferenceHandler  *httpH.PreferenceHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}
	if cfg.StaticDir != "" && cfg.StaticPrefix != "" {
		r.Static(cfg.StaticPrefix, cfg.StaticDir)
	}

	api := r.Group("/api/v1")

	// Health (public)
	if cfg.HealthHandler != nil {
		api.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	protected := api.Group("/")
	{
		if cfg.DeviceMiddleware != nil {
			protected.Use(cfg.DeviceMiddleware.RequireDevice())
		}
		limit := httpMW.RateLimit(cfg.Limiter, cfg.Log)

		// Audio
		if cfg.AudioHandler != nil {
			protected.POST("/audio", limit, cfg.AudioHandler.Upload)
			protected.GET("/audio/:audioId/status", cfg.AudioHandler.Status)
			protected.GET("/audio/:audioId/text", cfg.AudioHandler.Text)
		}

		// Environment
		if cfg.EnvironmentHandler != nil {
			protected.POST("/environment", limit, cfg.EnvironmentHandler.Submit)
			protected.GET("/environment/:environmentId", cfg.EnvironmentHandler.Get)
		}

		// Images
		if cfg.ImageHandler != nil {
			protected.POST("/images/generate", limit, cfg.ImageHandler.Generate)
			protected.GET("/images/status/:requestId", cfg.ImageHandler.Status)
			protected.GET("/images/gallery", cfg.ImageHandler.Gallery)
			protected.GET("/images/:imageId", cfg.ImageHandler.Details)
			protected.GET("/images/:imageId/export", cfg.ImageHandler.Export)
			protected.DELETE("/images/:imageId", cfg.ImageHandler.Delete)
		}

		// Preferences
		if cfg.PreferenceHandler != nil {
			protected.GET("/preferences", cfg.PreferenceHandler.Get)
			protected.PATCH("/preferences", cfg.PreferenceHandler.Update)
		}
	}

	return r
}
