package records

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type CaptureRepo interface {
	Create(dbc dbctx.Context, rec *capture.CaptureRecord) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*capture.CaptureRecord, error)
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error)
	ListExpired(dbc dbctx.Context, now time.Time, limit int) ([]*capture.CaptureRecord, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type captureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaptureRepo(db *gorm.DB, baseLog *logger.Logger) CaptureRepo {
	return &captureRepo{
		db:  db,
		log: baseLog.With("repo", "CaptureRepo"),
	}
}

func (r *captureRepo) Create(dbc dbctx.Context, rec *capture.CaptureRecord) error {
	return dbc.Conn(r.db).Create(rec).Error
}

// GetByID returns nil, nil when the record does not exist.
func (r *captureRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*capture.CaptureRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec capture.CaptureRecord
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *captureRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	return updateIfStatus(dbc.Conn(r.db).Model(&capture.CaptureRecord{}), id, allowedStatuses, updates)
}

func (r *captureRepo) ListExpired(dbc dbctx.Context, now time.Time, limit int) ([]*capture.CaptureRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*capture.CaptureRecord
	err := dbc.Conn(r.db).
		Where("expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *captureRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&capture.CaptureRecord{}).Error
}
