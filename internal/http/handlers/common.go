package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/ctxutil"
)

// deviceOf is the caller resolved by the device middleware. It is empty only
// when a handler is mounted without that middleware.
func deviceOf(c *gin.Context) string {
	if dd := ctxutil.GetDeviceData(c.Request.Context()); dd != nil {
		return dd.DeviceID
	}
	return ""
}

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// pathID parses a uuid route param. Ids that do not parse cannot exist, so
// they get the same not-found error as a missing record.
func pathID(c *gin.Context, param, notFoundCode, notFoundMsg string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(param)))
	if err != nil {
		return uuid.Nil, apierr.NotFound(notFoundCode, notFoundMsg)
	}
	return id, nil
}
