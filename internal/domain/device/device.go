package device

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
)

// Device is the identity behind an X-Device-Id header, with its preferences.
type Device struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID              string    `gorm:"column:device_id;not null;uniqueIndex" json:"device_id"`
	ImageStyle            string    `gorm:"column:image_style;not null" json:"image_style"`
	SaveAudioRecordings   bool      `gorm:"column:save_audio_recordings;not null" json:"save_audio_recordings"`
	LocationPrecision     string    `gorm:"column:location_precision;not null" json:"location_precision"`
	ShareAnalyticsData    bool      `gorm:"column:share_analytics_data;not null" json:"share_analytics_data"`
	NotifyImageGeneration bool      `gorm:"column:notify_image_generation;not null" json:"notify_image_generation"`
	NotifyNewFeatures     bool      `gorm:"column:notify_new_features;not null" json:"notify_new_features"`
	LastActive            time.Time `gorm:"column:last_active;not null" json:"last_active"`
	CreatedAt             time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time `gorm:"not null" json:"updated_at"`
}

func (Device) TableName() string { return "device" }

func New(deviceID string, now time.Time) *Device {
	return &Device{
		ID:                    uuid.New(),
		DeviceID:              deviceID,
		ImageStyle:            artifact.StyleBalanced,
		SaveAudioRecordings:   false,
		LocationPrecision:     environment.PrecisionCity,
		ShareAnalyticsData:    true,
		NotifyImageGeneration: true,
		NotifyNewFeatures:     false,
		LastActive:            now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

type PrivacySettings struct {
	SaveAudioRecordings bool   `json:"saveAudioRecordings"`
	LocationPrecision   string `json:"locationPrecision"`
	ShareAnalyticsData  bool   `json:"shareAnalyticsData"`
}

type Notifications struct {
	ImageGeneration bool `json:"imageGeneration"`
	NewFeatures     bool `json:"newFeatures"`
}

type Preferences struct {
	ImageStyle      string          `json:"imageStyle"`
	PrivacySettings PrivacySettings `json:"privacySettings"`
	Notifications   Notifications   `json:"notifications"`
	LastUpdated     time.Time       `json:"lastUpdated"`
}

func (d *Device) Preferences() Preferences {
	return Preferences{
		ImageStyle: d.ImageStyle,
		PrivacySettings: PrivacySettings{
			SaveAudioRecordings: d.SaveAudioRecordings,
			LocationPrecision:   d.LocationPrecision,
			ShareAnalyticsData:  d.ShareAnalyticsData,
		},
		Notifications: Notifications{
			ImageGeneration: d.NotifyImageGeneration,
			NewFeatures:     d.NotifyNewFeatures,
		},
		LastUpdated: d.UpdatedAt,
	}
}

// PreferencesPatch is a partial update. Nil fields are left alone.
type PreferencesPatch struct {
	ImageStyle      *string `json:"imageStyle"`
	PrivacySettings *struct {
		SaveAudioRecordings *bool   `json:"saveAudioRecordings"`
		LocationPrecision   *string `json:"locationPrecision"`
		ShareAnalyticsData  *bool   `json:"shareAnalyticsData"`
	} `json:"privacySettings"`
	Notifications *struct {
		ImageGeneration *bool `json:"imageGeneration"`
		NewFeatures     *bool `json:"newFeatures"`
	} `json:"notifications"`
}
