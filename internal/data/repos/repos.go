package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos/identity"
	"github.com/yungbote/mumble-backend/internal/data/repos/jobs"
	"github.com/yungbote/mumble-backend/internal/data/repos/records"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type DeviceRepo = identity.DeviceRepo

type CaptureRepo = records.CaptureRepo
type ContextRepo = records.ContextRepo
type ArtifactRepo = records.ArtifactRepo
type GalleryQuery = records.GalleryQuery

type JobRunRepo = jobs.JobRunRepo

func NewDeviceRepo(db *gorm.DB, baseLog *logger.Logger) DeviceRepo {
	return identity.NewDeviceRepo(db, baseLog)
}

func NewCaptureRepo(db *gorm.DB, baseLog *logger.Logger) CaptureRepo {
	return records.NewCaptureRepo(db, baseLog)
}
func NewContextRepo(db *gorm.DB, baseLog *logger.Logger) ContextRepo {
	return records.NewContextRepo(db, baseLog)
}
func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return records.NewArtifactRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
