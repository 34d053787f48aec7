package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type Repos struct {
	Device   repos.DeviceRepo
	Capture  repos.CaptureRepo
	Context  repos.ContextRepo
	Artifact repos.ArtifactRepo
	JobRun   repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Device:   repos.NewDeviceRepo(db, log),
		Capture:  repos.NewCaptureRepo(db, log),
		Context:  repos.NewContextRepo(db, log),
		Artifact: repos.NewArtifactRepo(db, log),
		JobRun:   repos.NewJobRunRepo(db, log),
	}
}
