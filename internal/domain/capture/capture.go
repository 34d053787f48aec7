package capture

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

const (
	DefaultRetention = 7 * 24 * time.Hour
	ShortRetention   = 24 * time.Hour
)

// Analysis is the text-analysis collaborator's verdict on a transcript.
type Analysis struct {
	Sentiment string   `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Themes    []string `json:"themes"`
}

// CaptureRecord is one submitted audio clip and, once processed, its transcript.
// Text and Analysis are set only when Status is completed; Error only when it is error.
type CaptureRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID   string         `gorm:"column:device_id;not null;index" json:"device_id"`
	StorageKey string         `gorm:"column:storage_key;not null" json:"storage_key"`
	FileName   string         `gorm:"column:file_name" json:"file_name"`
	MimeType   string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Duration   float64        `gorm:"column:duration;not null" json:"duration"`
	Text       *string        `gorm:"column:text" json:"text,omitempty"`
	Analysis   datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis,omitempty"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Error      *string        `gorm:"column:error" json:"error,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	ExpiresAt  time.Time      `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

func (CaptureRecord) TableName() string { return "capture_record" }

// New returns a record in the processing state with the default retention window.
func New(deviceID, storageKey, fileName, mimeType string, size int64, duration float64, now time.Time) *CaptureRecord {
	return &CaptureRecord{
		ID:         uuid.New(),
		DeviceID:   deviceID,
		StorageKey: storageKey,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		Duration:   duration,
		Status:     StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(DefaultRetention),
	}
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// EstimatedProcessingSeconds is what the submit call promises the client.
func EstimatedProcessingSeconds(duration float64) float64 {
	est := duration / 6
	if est > 5 {
		return 5
	}
	if est < 0 {
		return 0
	}
	return est
}

// DecodeAnalysis returns the stored analysis, or nil when none is stored.
func (r *CaptureRecord) DecodeAnalysis() *Analysis {
	if r == nil || len(r.Analysis) == 0 || string(r.Analysis) == "null" {
		return nil
	}
	var a Analysis
	if err := json.Unmarshal(r.Analysis, &a); err != nil {
		return nil
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	if a.Themes == nil {
		a.Themes = []string{}
	}
	return &a
}

func EncodeAnalysis(a Analysis) datatypes.JSON {
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	if a.Themes == nil {
		a.Themes = []string{}
	}
	raw, _ := json.Marshal(a)
	return datatypes.JSON(raw)
}

// StatusView is the poll response for a capture.
type StatusView struct {
	AudioID  string    `json:"audioId"`
	Status   string    `json:"status"`
	Text     *string   `json:"text,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Error    *string   `json:"error,omitempty"`
}

func (r *CaptureRecord) StatusView() StatusView {
	out := StatusView{AudioID: r.ID.String(), Status: r.Status}
	switch r.Status {
	case StatusCompleted:
		out.Text = r.Text
		out.Analysis = r.DecodeAnalysis()
	case StatusError:
		out.Error = r.Error
	}
	return out
}
