package app

import (
	httpH "github.com/yungbote/mumble-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mumble-backend/internal/http/middleware"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type Middleware struct {
	Device *httpMW.DeviceMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Audio       *httpH.AudioHandler
	Environment *httpH.EnvironmentHandler
	Image       *httpH.ImageHandler
	Preference  *httpH.PreferenceHandler
}

func wireMiddleware(log *logger.Logger, reposet Repos) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Device: httpMW.NewDeviceMiddleware(log, reposet.Device),
	}
}

func wireHandlers(log *logger.Logger, cfg Config, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(serviceset.Health),
		Audio:       httpH.NewAudioHandler(serviceset.Capture, cfg.Capture.MaxBytes),
		Environment: httpH.NewEnvironmentHandler(serviceset.Environment),
		Image:       httpH.NewImageHandler(serviceset.Artifact),
		Preference:  httpH.NewPreferenceHandler(serviceset.Preference),
	}
}
