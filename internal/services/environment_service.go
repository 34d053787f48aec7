package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type SubmitEnvironmentInput struct {
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
	Timestamp *time.Time
	Device    json.RawMessage
}

type EnvironmentService interface {
	Submit(dbc dbctx.Context, deviceID string, in SubmitEnvironmentInput) (*environment.ContextRecord, error)
	Get(dbc dbctx.Context, deviceID string, id uuid.UUID) (*environment.ContextRecord, error)
}

type environmentService struct {
	db       *gorm.DB
	log      *logger.Logger
	devices  repos.DeviceRepo
	contexts repos.ContextRepo
	enricher ContextEnricher
}

func NewEnvironmentService(db *gorm.DB, baseLog *logger.Logger, devices repos.DeviceRepo, contexts repos.ContextRepo, enricher ContextEnricher) EnvironmentService {
	return &environmentService{
		db:       db,
		log:      baseLog.With("service", "EnvironmentService"),
		devices:  devices,
		contexts: contexts,
		enricher: enricher,
	}
}

func (s *environmentService) Submit(dbc dbctx.Context, deviceID string, in SubmitEnvironmentInput) (*environment.ContextRecord, error) {
	if in.Latitude == nil || in.Longitude == nil || *in.Latitude == 0 || *in.Longitude == 0 {
		return nil, apierr.BadRequest("INVALID_LOCATION", "Valid location data is required")
	}
	lat, lng := *in.Latitude, *in.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return nil, apierr.BadRequest("INVALID_LOCATION", "Location is out of range")
	}

	precision := environment.PrecisionCity
	dev, err := s.devices.GetByDeviceID(dbc, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	if dev != nil && environment.IsValidPrecision(dev.LocationPrecision) {
		precision = dev.LocationPrecision
	}

	var ts time.Time
	if in.Timestamp != nil {
		ts = *in.Timestamp
	}

	rec := s.enricher.Enrich(dbc.Ctx, EnrichInput{
		DeviceID:   deviceID,
		Latitude:   lat,
		Longitude:  lng,
		Accuracy:   in.Accuracy,
		Precision:  precision,
		Timestamp:  ts,
		DeviceMeta: in.Device,
	})
	if err := s.contexts.Create(dbc, rec); err != nil {
		return nil, fmt.Errorf("create context record: %w", err)
	}
	s.log.Debug("context recorded", "context_id", rec.ID, "precision", precision, "place", rec.Location.PlaceName)
	return rec, nil
}

func (s *environmentService) Get(dbc dbctx.Context, deviceID string, id uuid.UUID) (*environment.ContextRecord, error) {
	rec, err := s.contexts.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.DeviceID != deviceID {
		return nil, apierr.NotFound("ENVIRONMENT_NOT_FOUND", "Environment data not found")
	}
	return rec, nil
}
