package app

import (
	"time"

	"github.com/yungbote/mumble-backend/internal/data/db"
	"github.com/yungbote/mumble-backend/internal/jobs/worker"
	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/ratelimit"
	"github.com/yungbote/mumble-backend/internal/services"
)

// Version is stamped at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string

	DB          db.Config
	Transcriber string

	RedisAddr    string
	RedisChannel string
	RateLimit    ratelimit.Config

	Worker  worker.Config
	Capture services.CaptureConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "mumble"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", Version),
		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", db.DriverPostgres),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.String("POSTGRES_PORT", "5432"),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "mumble"),
			SQLitePath: envutil.String("SQLITE_PATH", "mumble.db"),
		},
		Transcriber:  envutil.String("TRANSCRIBER", services.TranscriberOpenAI),
		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "mumble.jobs"),
		RateLimit: ratelimit.Config{
			Window: envutil.Millis("RATE_LIMIT_WINDOW_MS", time.Minute),
			Max:    envutil.Int("RATE_LIMIT_MAX", 10),
			Prefix: "mumble:ratelimit",
		},
		Worker:  worker.ConfigFromEnv(),
		Capture: services.CaptureConfigFromEnv(),
	}
	log.Debug("Config loaded",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"transcriber", cfg.Transcriber,
		"redis", cfg.RedisAddr != "",
		"rate_limit_max", cfg.RateLimit.Max,
		"rate_limit_window", cfg.RateLimit.Window.String(),
		"worker_concurrency", cfg.Worker.Concurrency,
	)
	return cfg
}
