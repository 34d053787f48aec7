package app

import (
	"github.com/yungbote/mumble-backend/internal/http"
	"github.com/yungbote/mumble-backend/internal/observability"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

func wireRouterConfig(log *logger.Logger, cfg Config, clients Clients, serviceset Services, handlers Handlers, middleware Middleware, metrics *observability.Metrics) http.RouterConfig {
	rc := http.RouterConfig{
		Log:                log,
		ServiceName:        cfg.ServiceName,
		Metrics:            metrics,
		Limiter:            serviceset.Limiter,
		DeviceMiddleware:   middleware.Device,
		AudioHandler:       handlers.Audio,
		EnvironmentHandler: handlers.Environment,
		ImageHandler:       handlers.Image,
		PreferenceHandler:  handlers.Preference,
		HealthHandler:      handlers.Health,
	}
	if dir, prefix, ok := blob.LocalDir(clients.Blob); ok {
		rc.StaticDir = dir
		rc.StaticPrefix = prefix
	}
	return rc
}
