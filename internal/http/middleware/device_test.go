package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/data/repos/testutil"
	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/ctxutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

func TestRequireDevice(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	devices := repos.NewDeviceRepo(db, logger.Nop())
	dm := NewDeviceMiddleware(logger.Nop(), devices)

	r := gin.New()
	r.Use(dm.RequireDevice())
	r.GET("/who", func(c *gin.Context) {
		dd := ctxutil.GetDeviceData(c.Request.Context())
		if dd == nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, dd.DeviceID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/who", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status: want=401 got=%d", rec.Code)
		}
		var env response.ErrorEnvelope
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
		if env.Error.Code != "MISSING_DEVICE_ID" {
			t.Fatalf("code: want=MISSING_DEVICE_ID got=%q", env.Error.Code)
		}
	})

	t.Run("creates device on first sight", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			req.Header.Set(HeaderDeviceID, " dev-1 ")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK || rec.Body.String() != "dev-1" {
				t.Fatalf("request %d: got=%d %q", i, rec.Code, rec.Body.String())
			}
		}
		d, err := devices.GetByDeviceID(dbctx.Context{Ctx: t.Context()}, "dev-1")
		if err != nil || d == nil {
			t.Fatalf("GetByDeviceID: d=%v err=%v", d, err)
		}
		if d.ImageStyle != "balanced" {
			t.Fatalf("default style: want=balanced got=%q", d.ImageStyle)
		}
	})
}
