package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/domain/device"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type DeviceRepo interface {
	FindOrCreate(dbc dbctx.Context, deviceID string) (*device.Device, error)
	GetByDeviceID(dbc dbctx.Context, deviceID string) (*device.Device, error)
	UpdateFields(dbc dbctx.Context, deviceID string, updates map[string]interface{}) error
	Touch(dbc dbctx.Context, deviceID string, at time.Time) error
}

type deviceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeviceRepo(db *gorm.DB, baseLog *logger.Logger) DeviceRepo {
	return &deviceRepo{
		db:  db,
		log: baseLog.With("repo", "DeviceRepo"),
	}
}

// FindOrCreate returns the device row for deviceID, inserting one with default
// preferences on first sight. Concurrent first requests from the same device
// collapse onto a single row via the unique index.
func (r *deviceRepo) FindOrCreate(dbc dbctx.Context, deviceID string) (*device.Device, error) {
	if deviceID == "" {
		return nil, nil
	}
	existing, err := r.GetByDeviceID(dbc, deviceID)
	if err != nil || existing != nil {
		return existing, err
	}

	d := device.New(deviceID, time.Now().UTC())
	if err := dbc.Conn(r.db).Create(d).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		r.log.Debug("device created concurrently", "device_id", deviceID)
		return r.GetByDeviceID(dbc, deviceID)
	}
	return d, nil
}

func (r *deviceRepo) GetByDeviceID(dbc dbctx.Context, deviceID string) (*device.Device, error) {
	var d device.Device
	if err := dbc.Conn(r.db).Where("device_id = ?", deviceID).Limit(1).Find(&d).Error; err != nil {
		return nil, err
	}
	if d.DeviceID == "" {
		return nil, nil
	}
	return &d, nil
}

func (r *deviceRepo) UpdateFields(dbc dbctx.Context, deviceID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&device.Device{}).
		Where("device_id = ?", deviceID).
		Updates(updates).Error
}

func (r *deviceRepo) Touch(dbc dbctx.Context, deviceID string, at time.Time) error {
	return dbc.Conn(r.db).
		Model(&device.Device{}).
		Where("device_id = ?", deviceID).
		Update("last_active", at.UTC()).Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
