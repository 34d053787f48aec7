package records

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type ContextRepo interface {
	Create(dbc dbctx.Context, rec *environment.ContextRecord) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*environment.ContextRecord, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*environment.ContextRecord, error)
}

type contextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextRepo(db *gorm.DB, baseLog *logger.Logger) ContextRepo {
	return &contextRepo{
		db:  db,
		log: baseLog.With("repo", "ContextRepo"),
	}
}

func (r *contextRepo) Create(dbc dbctx.Context, rec *environment.ContextRecord) error {
	return dbc.Conn(r.db).Create(rec).Error
}

func (r *contextRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*environment.ContextRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec environment.ContextRecord
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *contextRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*environment.ContextRecord, error) {
	var out []*environment.ContextRecord
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
