package capture_transcribe

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/services"
)

type Pipeline struct {
	db  *gorm.DB
	log *logger.Logger

	captures    repos.CaptureRepo
	devices     repos.DeviceRepo
	store       blob.Store
	transcriber services.Transcriber
	analyzer    services.Analyzer

	shortRetention time.Duration
	now            func() time.Time
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	captures repos.CaptureRepo,
	devices repos.DeviceRepo,
	store blob.Store,
	transcriber services.Transcriber,
	analyzer services.Analyzer,
	shortRetention time.Duration,
) *Pipeline {
	return &Pipeline{
		db:             db,
		log:            baseLog.With("job", types.TypeCaptureTranscribe),
		captures:       captures,
		devices:        devices,
		store:          store,
		transcriber:    transcriber,
		analyzer:       analyzer,
		shortRetention: shortRetention,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (p *Pipeline) Type() string { return types.TypeCaptureTranscribe }
