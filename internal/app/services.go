package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/jobs/pipeline/artifact_generate"
	"github.com/yungbote/mumble-backend/internal/jobs/pipeline/capture_transcribe"
	jobrt "github.com/yungbote/mumble-backend/internal/jobs/runtime"
	"github.com/yungbote/mumble-backend/internal/jobs/worker"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/ratelimit"
	"github.com/yungbote/mumble-backend/internal/prompt"
	"github.com/yungbote/mumble-backend/internal/realtime/bus"
	"github.com/yungbote/mumble-backend/internal/services"
)

type Services struct {
	Jobs        services.JobService
	Capture     services.CaptureService
	Environment services.EnvironmentService
	Artifact    services.ArtifactService
	Preference  services.PreferenceService
	Health      services.HealthService

	Limiter   ratelimit.Limiter
	JobEvents bus.Bus
	JobWorker *worker.Worker
	Sweeper   *services.ExpirySweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	var (
		limiter ratelimit.Limiter
		events  bus.Bus
	)
	if clients.Redis != nil {
		limiter = ratelimit.NewRedis(clients.Redis, cfg.RateLimit)
		events = bus.NewRedisBusWithClient(log, clients.Redis, cfg.RedisChannel)
	} else {
		limiter = ratelimit.NewMemory(cfg.RateLimit)
		events = bus.NewMemoryBus()
	}

	jobService := services.NewJobService(db, log, reposet.JobRun)
	captureService := services.NewCaptureService(db, log, reposet.Capture, clients.Blob, jobService, cfg.Capture)
	enricher := services.NewContextEnricher(log, clients.Weather)
	environmentService := services.NewEnvironmentService(db, log, reposet.Device, reposet.Context, enricher)
	artifactService := services.NewArtifactService(
		db,
		log,
		reposet.Device,
		reposet.Capture,
		reposet.Context,
		reposet.Artifact,
		clients.Blob,
		jobService,
	)
	preferenceService := services.NewPreferenceService(db, log, reposet.Device)
	healthService := services.NewHealthService(db, log, clients.Blob, clients.OpenAI, cfg.Version)

	transcriber, err := wireTranscriber(cfg, clients)
	if err != nil {
		return Services{}, err
	}
	analyzer := services.NewOpenAIAnalyzer(log, clients.OpenAI)

	registry := jobrt.NewRegistry()
	handlers := []jobrt.Handler{
		capture_transcribe.New(
			db,
			log,
			reposet.Capture,
			reposet.Device,
			clients.Blob,
			transcriber,
			analyzer,
			cfg.Capture.ShortRetention,
		),
		artifact_generate.New(
			db,
			log,
			reposet.Artifact,
			reposet.Capture,
			reposet.Context,
			clients.Blob,
			clients.OpenAI,
			prompt.New(nil),
		),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register job handler: %w", err)
		}
	}

	jobWorker := worker.NewWorker(db, log, reposet.JobRun, registry, events, cfg.Worker)
	sweeper := services.NewExpirySweeper(log, reposet.Capture, clients.Blob)

	return Services{
		Jobs:        jobService,
		Capture:     captureService,
		Environment: environmentService,
		Artifact:    artifactService,
		Preference:  preferenceService,
		Health:      healthService,
		Limiter:     limiter,
		JobEvents:   events,
		JobWorker:   jobWorker,
		Sweeper:     sweeper,
	}, nil
}

func wireTranscriber(cfg Config, clients Clients) (services.Transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transcriber)) {
	case "", services.TranscriberOpenAI:
		return services.NewOpenAITranscriber(clients.OpenAI), nil
	case services.TranscriberGCP:
		if clients.GcpSpeech == nil {
			return nil, fmt.Errorf("TRANSCRIBER=gcp but speech client not initialized")
		}
		return services.NewSpeechTranscriber(clients.GcpSpeech), nil
	default:
		return nil, fmt.Errorf("unsupported TRANSCRIBER %q", cfg.Transcriber)
	}
}
