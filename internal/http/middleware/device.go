package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/ctxutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

const HeaderDeviceID = "X-Device-Id"

// maxDeviceIDLen matches what clients generate (uuid or vendor id) with room to spare.
const maxDeviceIDLen = 128

type DeviceMiddleware struct {
	log     *logger.Logger
	devices repos.DeviceRepo
}

func NewDeviceMiddleware(log *logger.Logger, devices repos.DeviceRepo) *DeviceMiddleware {
	return &DeviceMiddleware{log: log.With("Middleware", "DeviceMiddleware"), devices: devices}
}

// RequireDevice resolves X-Device-Id to a device row, creating it on first
// sight, and attaches it to the request context.
func (dm *DeviceMiddleware) RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(HeaderDeviceID))
		if deviceID == "" {
			response.AbortAPIError(c, apierr.Unauthorized("MISSING_DEVICE_ID", "X-Device-Id header is required"))
			return
		}
		if len(deviceID) > maxDeviceIDLen {
			response.AbortAPIError(c, apierr.BadRequest("INVALID_DEVICE_ID", "X-Device-Id is too long"))
			return
		}

		dbc := dbctx.Context{Ctx: c.Request.Context()}
		d, err := dm.devices.FindOrCreate(dbc, deviceID)
		if err != nil || d == nil {
			dm.log.Error("device lookup failed", "device_id", deviceID, "error", err)
			response.AbortAPIError(c, apierr.Internal(err))
			return
		}
		if err := dm.devices.Touch(dbc, deviceID, time.Now()); err != nil {
			dm.log.Warn("device touch failed", "device_id", deviceID, "error", err)
		}

		ctx := ctxutil.WithDeviceData(c.Request.Context(), &ctxutil.DeviceData{
			DeviceID:    d.DeviceID,
			DeviceRowID: d.ID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("device_id", d.DeviceID)
		c.Next()
	}
}
