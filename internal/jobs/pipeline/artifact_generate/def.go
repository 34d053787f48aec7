package artifact_generate

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
	"github.com/yungbote/mumble-backend/internal/prompt"
)

type Pipeline struct {
	db  *gorm.DB
	log *logger.Logger

	artifacts   repos.ArtifactRepo
	captures    repos.CaptureRepo
	contexts    repos.ContextRepo
	store       blob.Store
	ai          openai.Client
	synthesizer *prompt.Synthesizer

	now func() time.Time
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifacts repos.ArtifactRepo,
	captures repos.CaptureRepo,
	contexts repos.ContextRepo,
	store blob.Store,
	ai openai.Client,
	synthesizer *prompt.Synthesizer,
) *Pipeline {
	if synthesizer == nil {
		synthesizer = prompt.New(nil)
	}
	return &Pipeline{
		db:          db,
		log:         baseLog.With("job", types.TypeArtifactGenerate),
		artifacts:   artifacts,
		captures:    captures,
		contexts:    contexts,
		store:       store,
		ai:          ai,
		synthesizer: synthesizer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (p *Pipeline) Type() string { return types.TypeArtifactGenerate }
