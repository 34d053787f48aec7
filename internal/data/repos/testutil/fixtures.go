package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/domain/device"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
)

func SeedDevice(tb testing.TB, ctx context.Context, tx *gorm.DB, deviceID string) *device.Device {
	tb.Helper()
	d := device.New(deviceID, time.Now().UTC())
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed device: %v", err)
	}
	return d
}

func SeedCapture(tb testing.TB, ctx context.Context, tx *gorm.DB, deviceID string) *capture.CaptureRecord {
	tb.Helper()
	rec := capture.New(deviceID, "audio/seed.webm", "seed.webm", "audio/webm", 128, 3.0, time.Now().UTC())
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed capture: %v", err)
	}
	return rec
}

// SeedCompletedCapture seeds a capture that already carries a transcript.
func SeedCompletedCapture(tb testing.TB, ctx context.Context, tx *gorm.DB, deviceID, text string, a capture.Analysis) *capture.CaptureRecord {
	tb.Helper()
	rec := capture.New(deviceID, "audio/seed.webm", "seed.webm", "audio/webm", 128, 3.0, time.Now().UTC())
	rec.Status = capture.StatusCompleted
	rec.Text = &text
	rec.Analysis = capture.EncodeAnalysis(a)
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed completed capture: %v", err)
	}
	return rec
}

func SeedContext(tb testing.TB, ctx context.Context, tx *gorm.DB, deviceID, placeName string) *environment.ContextRecord {
	tb.Helper()
	now := time.Now().UTC()
	rec := &environment.ContextRecord{
		ID:       uuid.New(),
		DeviceID: deviceID,
		Location: environment.Location{
			Latitude:  47.61,
			Longitude: -122.33,
			Precision: environment.PrecisionCity,
			PlaceName: placeName,
			Country:   "US",
		},
		Weather:   environment.DefaultWeather(),
		Time:      environment.BuildTimeInfo(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed context: %v", err)
	}
	return rec
}

func SeedArtifact(tb testing.TB, ctx context.Context, tx *gorm.DB, deviceID string, c *capture.CaptureRecord, e *environment.ContextRecord) *artifact.ArtifactRequest {
	tb.Helper()
	rec := artifact.New(deviceID, c.ID, e.ID, artifact.StyleBalanced, time.Now().UTC())
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed artifact: %v", err)
	}
	return rec
}
