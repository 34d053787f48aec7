package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type deviceDataKey struct{}

// DeviceData identifies the caller of a request. DeviceID is the raw
// X-Device-Id header, DeviceRowID the primary key of its device row.
type DeviceData struct {
	DeviceID    string
	DeviceRowID uuid.UUID
}

func WithDeviceData(ctx context.Context, dd *DeviceData) context.Context {
	return context.WithValue(Default(ctx), deviceDataKey{}, dd)
}

func GetDeviceData(ctx context.Context) *DeviceData {
	if ctx == nil {
		return nil
	}
	if dd, ok := ctx.Value(deviceDataKey{}).(*DeviceData); ok {
		return dd
	}
	return nil
}
