package artifact

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

const (
	StyleBalanced  = "balanced"
	StyleRealistic = "realistic"
	StyleArtistic  = "artistic"
	StyleAbstract  = "abstract"
)

// EstimatedSeconds is the generation estimate handed to polling clients.
const EstimatedSeconds = 15

// ArtifactRequest drives one image generation. Status only moves forward:
// queued -> processing -> completed | error.
type ArtifactRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID        string     `gorm:"column:device_id;not null;index" json:"device_id"`
	CaptureID       uuid.UUID  `gorm:"type:uuid;column:capture_id;not null;index" json:"capture_id"`
	ContextID       uuid.UUID  `gorm:"type:uuid;column:context_id;not null;index" json:"context_id"`
	StylePreference string     `gorm:"column:style_preference;not null" json:"style_preference"`
	Status          string     `gorm:"column:status;not null;index" json:"status"`
	PromptText      *string    `gorm:"column:prompt_text" json:"prompt_text,omitempty"`
	FileName        *string    `gorm:"column:file_name" json:"file_name,omitempty"`
	ImageKey        *string    `gorm:"column:image_key" json:"image_key,omitempty"`
	ThumbnailKey    *string    `gorm:"column:thumbnail_key" json:"thumbnail_key,omitempty"`
	ImageURL        *string    `gorm:"column:image_url" json:"image_url,omitempty"`
	ThumbnailURL    *string    `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	Error           *string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
	GeneratedAt     *time.Time `gorm:"column:generated_at;index" json:"generated_at,omitempty"`
}

func (ArtifactRequest) TableName() string { return "artifact_request" }

func New(deviceID string, captureID, contextID uuid.UUID, style string, now time.Time) *ArtifactRequest {
	if !IsValidStyle(style) {
		style = StyleBalanced
	}
	return &ArtifactRequest{
		ID:              uuid.New(),
		DeviceID:        deviceID,
		CaptureID:       captureID,
		ContextID:       contextID,
		StylePreference: style,
		Status:          StatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func IsValidStyle(s string) bool {
	switch s {
	case StyleBalanced, StyleRealistic, StyleArtistic, StyleAbstract:
		return true
	default:
		return false
	}
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// AllowedFrom lists the statuses a record may be in when moving to `to`.
func AllowedFrom(to string) []string {
	switch to {
	case StatusProcessing:
		return []string{StatusQueued}
	case StatusCompleted, StatusError:
		return []string{StatusQueued, StatusProcessing}
	default:
		return nil
	}
}

func CanTransition(from, to string) bool {
	for _, s := range AllowedFrom(to) {
		if s == from {
			return true
		}
	}
	return false
}

// FileName is the blob name shared by the full image and its thumbnail.
func FileName(id uuid.UUID) string {
	return id.String() + "_" + uuid.NewString() + ".jpg"
}

func ImageKey(fileName string) string     { return "images/" + fileName }
func ThumbnailKey(fileName string) string { return "thumbnails/" + fileName }
