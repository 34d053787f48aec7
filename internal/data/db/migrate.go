package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/domain/device"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/domain/jobs"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity
		// =========================
		&device.Device{},

		// =========================
		// Pipeline records
		// =========================
		&capture.CaptureRecord{},
		&environment.ContextRecord{},
		&artifact.ArtifactRequest{},

		// =========================
		// Jobs
		// =========================
		&jobs.JobRun{},
	)
}
