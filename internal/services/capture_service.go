package services

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

var audioExtensions = map[string]string{
	"audio/wav":  ".wav",
	"audio/mpeg": ".mp3",
	"audio/mp3":  ".mp3",
	"audio/mp4":  ".m4a",
	"audio/webm": ".webm",
	"audio/ogg":  ".ogg",
}

type CaptureConfig struct {
	MaxBytes       int64
	Retention      time.Duration
	ShortRetention time.Duration
}

func CaptureConfigFromEnv() CaptureConfig {
	return CaptureConfig{
		MaxBytes:       envutil.Int64("AUDIO_MAX_BYTES", 10<<20),
		Retention:      time.Duration(envutil.Int("AUDIO_RETENTION_DAYS", 7)) * 24 * time.Hour,
		ShortRetention: time.Duration(envutil.Int("AUDIO_SHORT_RETENTION_HOURS", 24)) * time.Hour,
	}
}

type SubmitAudioInput struct {
	FileName string
	MimeType string
	Data     []byte
	Duration float64
}

type CaptureService interface {
	Submit(dbc dbctx.Context, deviceID string, in SubmitAudioInput) (*capture.CaptureRecord, error)
	Get(dbc dbctx.Context, deviceID string, id uuid.UUID) (*capture.CaptureRecord, error)
}

type captureService struct {
	db       *gorm.DB
	log      *logger.Logger
	captures repos.CaptureRepo
	store    blob.Store
	jobs     JobService
	cfg      CaptureConfig
}

func NewCaptureService(db *gorm.DB, baseLog *logger.Logger, captures repos.CaptureRepo, store blob.Store, jobs JobService, cfg CaptureConfig) CaptureService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.Retention <= 0 {
		cfg.Retention = capture.DefaultRetention
	}
	return &captureService{
		db:       db,
		log:      baseLog.With("service", "CaptureService"),
		captures: captures,
		store:    store,
		jobs:     jobs,
		cfg:      cfg,
	}
}

// NormalizeAudioType strips parameters such as ";codecs=opus" and reports
// whether the type is accepted.
func NormalizeAudioType(contentType string) (string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	_, ok := audioExtensions[mt]
	return mt, ok
}

func (s *captureService) Submit(dbc dbctx.Context, deviceID string, in SubmitAudioInput) (*capture.CaptureRecord, error) {
	if len(in.Data) == 0 {
		return nil, apierr.BadRequest("MISSING_FILE", "No audio file provided")
	}
	if in.Duration <= 0 {
		return nil, apierr.BadRequest("MISSING_DURATION", "Audio duration is required")
	}
	mt, ok := NormalizeAudioType(in.MimeType)
	if !ok {
		return nil, apierr.BadRequest("INVALID_FILE", "Unsupported audio format")
	}
	if int64(len(in.Data)) > s.cfg.MaxBytes {
		return nil, apierr.BadRequest("INVALID_FILE", fmt.Sprintf("Audio file exceeds %d bytes", s.cfg.MaxBytes))
	}

	now := time.Now().UTC()
	fileName := filepath.Base(strings.TrimSpace(in.FileName))
	if fileName == "." || fileName == "/" {
		fileName = ""
	}
	rec := capture.New(deviceID, "", fileName, mt, int64(len(in.Data)), in.Duration, now)
	rec.ExpiresAt = now.Add(s.cfg.Retention)
	rec.StorageKey = "audio/" + rec.ID.String() + audioExtensions[mt]
	if rec.FileName == "" {
		rec.FileName = filepath.Base(rec.StorageKey)
	}

	if err := s.store.Put(dbc.Ctx, rec.StorageKey, mt, in.Data); err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}
	if err := s.captures.Create(dbc, rec); err != nil {
		_ = s.store.Delete(dbc.Ctx, rec.StorageKey)
		return nil, fmt.Errorf("create capture record: %w", err)
	}

	entityID := rec.ID
	if _, err := s.jobs.Enqueue(dbc, deviceID, types.TypeCaptureTranscribe, types.EntityCapture, &entityID, map[string]any{
		"capture_id": rec.ID.String(),
	}); err != nil {
		msg := "failed to queue processing"
		_, _ = s.captures.UpdateFieldsIfStatus(dbc, rec.ID, []string{capture.StatusProcessing}, map[string]interface{}{
			"status": capture.StatusError,
			"error":  msg,
		})
		return nil, fmt.Errorf("enqueue transcription: %w", err)
	}

	s.log.Info("capture submitted", "capture_id", rec.ID, "bytes", len(in.Data), "duration", in.Duration)
	return rec, nil
}

func (s *captureService) Get(dbc dbctx.Context, deviceID string, id uuid.UUID) (*capture.CaptureRecord, error) {
	rec, err := s.captures.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.DeviceID != deviceID {
		return nil, apierr.NotFound("AUDIO_NOT_FOUND", "Audio record not found")
	}
	return rec, nil
}

// ErrAudioNotProcessed is returned when the transcript is requested too early.
var ErrAudioNotProcessed = apierr.BadRequest("AUDIO_NOT_PROCESSED", "Audio has not finished processing")

// TranscriptOf returns the transcript of a completed capture.
func TranscriptOf(rec *capture.CaptureRecord) (string, error) {
	if rec == nil || rec.Status != capture.StatusCompleted || rec.Text == nil {
		return "", ErrAudioNotProcessed
	}
	return *rec.Text, nil
}
