package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/gcp"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
	"github.com/yungbote/mumble-backend/internal/platform/weather"
)

type Clients struct {
	Blob      blob.Store
	OpenAI    openai.Client
	GcpSpeech gcp.Speech
	Weather   weather.Client
	Redis     goredis.UniversalClient
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Blob storage
	store, err := blob.New(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init blob store: %w", err)
	}

	// Openai
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		_ = store.Close()
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Gcp
	var speech gcp.Speech
	if strings.EqualFold(cfg.Transcriber, "gcp") {
		speech, err = gcp.NewSpeech(log)
		if err != nil {
			_ = store.Close()
			return Clients{}, fmt.Errorf("init speech client: %w", err)
		}
	}

	wc := weather.NewClient(log)
	if !wc.Configured() {
		log.Warn("WEATHER_API_KEY not set; contexts will carry placeholder weather")
	}

	// Redis
	var rdb goredis.UniversalClient
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			if speech != nil {
				_ = speech.Close()
			}
			_ = store.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
		rdb = client
	}

	return Clients{
		Blob:      store,
		OpenAI:    openaiClient,
		GcpSpeech: speech,
		Weather:   wc,
		Redis:     rdb,
	}, nil
}

func (c Clients) Close(log *logger.Logger) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if c.GcpSpeech != nil {
		if err := c.GcpSpeech.Close(); err != nil {
			log.Warn("speech client close failed", "error", err)
		}
	}
	if c.Blob != nil {
		if err := c.Blob.Close(); err != nil {
			log.Warn("blob store close failed", "error", err)
		}
	}
}
