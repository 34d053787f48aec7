package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
)

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

type HealthReport struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	db      *gorm.DB
	log     *logger.Logger
	store   blob.Store
	ai      openai.Client
	version string
	timeout time.Duration
}

// NewHealthService accepts a nil ai client; the ai check then reports down.
func NewHealthService(db *gorm.DB, baseLog *logger.Logger, store blob.Store, ai openai.Client, version string) HealthService {
	return &healthService{
		db:      db,
		log:     baseLog.With("service", "HealthService"),
		store:   store,
		ai:      ai,
		version: version,
		timeout: 5 * time.Second,
	}
}

func (s *healthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var dbStatus, storageStatus, aiStatus string
	var g errgroup.Group
	g.Go(func() error {
		dbStatus = s.checkDep("database", func() error {
			sqlDB, err := s.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
		return nil
	})
	g.Go(func() error {
		storageStatus = s.checkDep("storage", func() error { return s.store.Check(ctx) })
		return nil
	})
	g.Go(func() error {
		if s.ai == nil {
			aiStatus = HealthDown
			return nil
		}
		aiStatus = s.checkDep("ai", func() error { return s.ai.Ping(ctx) })
		return nil
	})
	_ = g.Wait()

	status := HealthOK
	if dbStatus != HealthOK || storageStatus != HealthOK || aiStatus != HealthOK {
		status = HealthDegraded
	}
	return HealthReport{
		Status:    status,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Services: map[string]string{
			"database": dbStatus,
			"storage":  storageStatus,
			"ai":       aiStatus,
		},
	}
}

func (s *healthService) checkDep(name string, fn func() error) string {
	if err := fn(); err != nil {
		s.log.Warn("health check failed", "dependency", name, "error", err)
		return HealthDown
	}
	return HealthOK
}
