package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/weather"
)

type EnrichInput struct {
	DeviceID   string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	Precision  string
	Timestamp  time.Time
	DeviceMeta json.RawMessage
}

// ContextEnricher builds a fully populated ContextRecord. Lookup failures are
// replaced by defaults, so Enrich has no error return.
type ContextEnricher interface {
	Enrich(ctx context.Context, in EnrichInput) *environment.ContextRecord
}

type contextEnricher struct {
	log     *logger.Logger
	weather weather.Client
	now     func() time.Time
}

func NewContextEnricher(baseLog *logger.Logger, wc weather.Client) ContextEnricher {
	return &contextEnricher{
		log:     baseLog.With("service", "ContextEnricher"),
		weather: wc,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ApplyPrecision coarsens coordinates for the owner's location precision.
// Unknown precisions are treated as city.
func ApplyPrecision(lat, lng float64, precision string) (float64, float64) {
	switch precision {
	case environment.PrecisionExact:
		return lat, lng
	case environment.PrecisionNone:
		return 0, 0
	default:
		return round2(lat), round2(lng)
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (e *contextEnricher) Enrich(ctx context.Context, in EnrichInput) *environment.ContextRecord {
	precision := in.Precision
	if !environment.IsValidPrecision(precision) {
		precision = environment.PrecisionCity
	}
	lat, lng := ApplyPrecision(in.Latitude, in.Longitude, precision)
	accuracy := in.Accuracy
	if precision == environment.PrecisionNone {
		// An accuracy radius still hints at where the device was.
		accuracy = nil
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	wx := environment.DefaultWeather()
	place := weather.Place{
		Name:               environment.UnknownPlace,
		Country:            environment.UnknownPlace,
		AdministrativeArea: environment.UnknownPlace,
	}

	if precision != environment.PrecisionNone && e.weather != nil && e.weather.Configured() {
		var g errgroup.Group
		g.Go(func() error {
			w, err := e.weather.Current(ctx, lat, lng)
			if err != nil {
				e.log.Warn("weather lookup failed, using default", "error", err)
				return nil
			}
			wx = w
			return nil
		})
		g.Go(func() error {
			p, err := e.weather.ReverseGeocode(ctx, lat, lng)
			if err != nil {
				e.log.Warn("reverse geocode failed, using default", "error", err)
				return nil
			}
			place = p
			if place.Country == "" {
				place.Country = environment.UnknownPlace
			}
			if place.AdministrativeArea == "" {
				place.AdministrativeArea = environment.UnknownPlace
			}
			return nil
		})
		_ = g.Wait()
	}

	meta := datatypes.JSON([]byte("{}"))
	if len(in.DeviceMeta) > 0 && json.Valid(in.DeviceMeta) {
		meta = datatypes.JSON(in.DeviceMeta)
	}

	return &environment.ContextRecord{
		ID:       uuid.New(),
		DeviceID: in.DeviceID,
		Location: environment.Location{
			Latitude:           lat,
			Longitude:          lng,
			Accuracy:           accuracy,
			Precision:          precision,
			PlaceName:          place.Name,
			Country:            place.Country,
			AdministrativeArea: place.AdministrativeArea,
		},
		Weather:    wx,
		Time:       environment.BuildTimeInfo(ts),
		DeviceMeta: meta,
		CreatedAt:  e.now(),
	}
}
