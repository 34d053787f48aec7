package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/device"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type PreferenceService interface {
	Get(dbc dbctx.Context, deviceID string) (*device.Preferences, error)
	Update(dbc dbctx.Context, deviceID string, patch device.PreferencesPatch) (*device.Preferences, error)
}

type preferenceService struct {
	db      *gorm.DB
	log     *logger.Logger
	devices repos.DeviceRepo
}

func NewPreferenceService(db *gorm.DB, baseLog *logger.Logger, devices repos.DeviceRepo) PreferenceService {
	return &preferenceService{
		db:      db,
		log:     baseLog.With("service", "PreferenceService"),
		devices: devices,
	}
}

func (s *preferenceService) Get(dbc dbctx.Context, deviceID string) (*device.Preferences, error) {
	dev, err := s.devices.FindOrCreate(dbc, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	prefs := dev.Preferences()
	return &prefs, nil
}

// PatchUpdates validates a patch and maps it onto device columns.
func PatchUpdates(patch device.PreferencesPatch) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if patch.ImageStyle != nil {
		style := strings.ToLower(strings.TrimSpace(*patch.ImageStyle))
		if !artifact.IsValidStyle(style) {
			return nil, apierr.BadRequest("INVALID_STYLE", "Image style must be one of balanced, realistic, artistic, abstract")
		}
		updates["image_style"] = style
	}
	if p := patch.PrivacySettings; p != nil {
		if p.SaveAudioRecordings != nil {
			updates["save_audio_recordings"] = *p.SaveAudioRecordings
		}
		if p.LocationPrecision != nil {
			precision := strings.ToLower(strings.TrimSpace(*p.LocationPrecision))
			if !environment.IsValidPrecision(precision) {
				return nil, apierr.BadRequest("INVALID_LOCATION_PRECISION", "Location precision must be one of exact, city, none")
			}
			updates["location_precision"] = precision
		}
		if p.ShareAnalyticsData != nil {
			updates["share_analytics_data"] = *p.ShareAnalyticsData
		}
	}
	if n := patch.Notifications; n != nil {
		if n.ImageGeneration != nil {
			updates["notify_image_generation"] = *n.ImageGeneration
		}
		if n.NewFeatures != nil {
			updates["notify_new_features"] = *n.NewFeatures
		}
	}
	return updates, nil
}

func (s *preferenceService) Update(dbc dbctx.Context, deviceID string, patch device.PreferencesPatch) (*device.Preferences, error) {
	updates, err := PatchUpdates(patch)
	if err != nil {
		return nil, err
	}
	if _, err := s.devices.FindOrCreate(dbc, deviceID); err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	if err := s.devices.UpdateFields(dbc, deviceID, updates); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	dev, err := s.devices.GetByDeviceID(dbc, deviceID)
	if err != nil {
		return nil, fmt.Errorf("reload device: %w", err)
	}
	if dev == nil {
		return nil, apierr.NotFound("DEVICE_NOT_FOUND", "Device not found")
	}
	s.log.Info("preferences updated", "device_id", deviceID, "fields", len(updates))
	prefs := dev.Preferences()
	return &prefs, nil
}
