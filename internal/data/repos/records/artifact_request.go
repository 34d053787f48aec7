package records

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type GalleryQuery struct {
	DeviceID string
	Limit    int
	Offset   int
	SortBy   string
	Desc     bool
}

type ArtifactRepo interface {
	Create(dbc dbctx.Context, rec *artifact.ArtifactRequest) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*artifact.ArtifactRequest, error)
	GetByIDForDevice(dbc dbctx.Context, id uuid.UUID, deviceID string) (*artifact.ArtifactRequest, error)
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error)
	ListCompleted(dbc dbctx.Context, q GalleryQuery) ([]*artifact.ArtifactRequest, int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{
		db:  db,
		log: baseLog.With("repo", "ArtifactRepo"),
	}
}

func (r *artifactRepo) Create(dbc dbctx.Context, rec *artifact.ArtifactRequest) error {
	return dbc.Conn(r.db).Create(rec).Error
}

func (r *artifactRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*artifact.ArtifactRequest, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec artifact.ArtifactRequest
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *artifactRepo) GetByIDForDevice(dbc dbctx.Context, id uuid.UUID, deviceID string) (*artifact.ArtifactRequest, error) {
	if id == uuid.Nil || deviceID == "" {
		return nil, nil
	}
	var rec artifact.ArtifactRequest
	err := dbc.Conn(r.db).
		Where("id = ? AND device_id = ?", id, deviceID).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *artifactRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	return updateIfStatus(dbc.Conn(r.db).Model(&artifact.ArtifactRequest{}), id, allowedStatuses, updates)
}

var gallerySortColumns = map[string]string{
	"createdAt":   "created_at",
	"generatedAt": "generated_at",
}

func (r *artifactRepo) ListCompleted(dbc dbctx.Context, q GalleryQuery) ([]*artifact.ArtifactRequest, int64, error) {
	base := dbc.Conn(r.db).
		Model(&artifact.ArtifactRequest{}).
		Where("device_id = ? AND status = ?", q.DeviceID, artifact.StatusCompleted)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := gallerySortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	var out []*artifact.ArtifactRequest
	err := base.Session(&gorm.Session{}).
		Order(col + " " + dir).
		Order("id " + dir).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *artifactRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&artifact.ArtifactRequest{}).Error
}
