package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/data/repos/testutil"
	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	httpH "github.com/yungbote/mumble-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mumble-backend/internal/http/middleware"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/ratelimit"
	"github.com/yungbote/mumble-backend/internal/platform/weather"
	"github.com/yungbote/mumble-backend/internal/services"
)

const testDevice = "device-router"

type routerHarness struct {
	engine    *gin.Engine
	store     blob.Store
	artifacts repos.ArtifactRepo
	dbc       dbctx.Context
	seed      func() (*capture.CaptureRecord, string)
}

func newRouterHarness(t *testing.T, limit int) *routerHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("WEATHER_API_KEY", "")

	db := testutil.SQLite(t)
	log := logger.Nop()
	store, err := blob.NewLocal(log, t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	devices := repos.NewDeviceRepo(db, log)
	captures := repos.NewCaptureRepo(db, log)
	contexts := repos.NewContextRepo(db, log)
	artifacts := repos.NewArtifactRepo(db, log)
	jobs := services.NewJobService(db, log, repos.NewJobRunRepo(db, log))

	captureSvc := services.NewCaptureService(db, log, captures, store, jobs, services.CaptureConfig{
		MaxBytes:       1 << 10,
		Retention:      time.Hour,
		ShortRetention: time.Minute,
	})
	enricher := services.NewContextEnricher(log, weather.NewClient(log))

	engine := NewRouter(RouterConfig{
		Log:                log,
		Limiter:            ratelimit.NewMemory(ratelimit.Config{Window: time.Minute, Max: limit}),
		DeviceMiddleware:   httpMW.NewDeviceMiddleware(log, devices),
		AudioHandler:       httpH.NewAudioHandler(captureSvc, 1<<10),
		EnvironmentHandler: httpH.NewEnvironmentHandler(services.NewEnvironmentService(db, log, devices, contexts, enricher)),
		ImageHandler:       httpH.NewImageHandler(services.NewArtifactService(db, log, devices, captures, contexts, artifacts, store, jobs)),
		PreferenceHandler:  httpH.NewPreferenceHandler(services.NewPreferenceService(db, log, devices)),
		HealthHandler:      httpH.NewHealthHandler(services.NewHealthService(db, log, store, nil, "test")),
	})

	ctx := context.Background()
	h := &routerHarness{
		engine:    engine,
		store:     store,
		artifacts: artifacts,
		dbc:       dbctx.Context{Ctx: ctx},
	}
	h.seed = func() (*capture.CaptureRecord, string) {
		c := testutil.SeedCompletedCapture(t, ctx, db, testDevice, "a calm lake at sunrise", capture.Analysis{
			Sentiment: "calm",
			Keywords:  []string{"lake", "sunrise"},
			Themes:    []string{"nature"},
		})
		e := testutil.SeedContext(t, ctx, db, testDevice, "Seattle")
		return c, e.ID.String()
	}
	return h
}

func (h *routerHarness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpMW.HeaderDeviceID, testDevice)
	return h.serve(t, req)
}

func (h *routerHarness) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", req.Method, req.URL.Path, err, rec.Body.String())
		}
	}
	return rec, out
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func audioUpload(t *testing.T, contentType string, data []byte, duration string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="audio"; filename="clip.webm"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write(data)
	}
	if duration != "" {
		_ = mw.WriteField("duration", duration)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(httpMW.HeaderDeviceID, testDevice)
	return req
}

func TestHealthIsPublic(t *testing.T) {
	h := newRouterHarness(t, 10)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec, body := h.serve(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	deps, _ := body["services"].(map[string]any)
	if deps["database"] != "ok" || deps["ai"] != "down" {
		t.Fatalf("services: got=%v", deps)
	}
	if body["status"] != "degraded" {
		t.Fatalf("overall: want=degraded got=%v", body["status"])
	}
}

func TestDeviceHeaderRequired(t *testing.T) {
	h := newRouterHarness(t, 10)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences", nil)
	rec, body := h.serve(t, req)
	if rec.Code != http.StatusUnauthorized || errCode(body) != "MISSING_DEVICE_ID" {
		t.Fatalf("want 401 MISSING_DEVICE_ID got=%d %v", rec.Code, body)
	}
}

func TestAudioRoutes(t *testing.T) {
	h := newRouterHarness(t, 10)

	cases := []struct {
		name     string
		req      *http.Request
		wantCode string
	}{
		{"missing file", audioUpload(t, "audio/webm", nil, "3"), "MISSING_FILE"},
		{"missing duration", audioUpload(t, "audio/webm", []byte("RIFF"), ""), "MISSING_DURATION"},
		{"bad duration", audioUpload(t, "audio/webm", []byte("RIFF"), "soon"), "MISSING_DURATION"},
		{"bad type", audioUpload(t, "video/mp4", []byte("RIFF"), "3"), "INVALID_FILE"},
		{"too big", audioUpload(t, "audio/webm", bytes.Repeat([]byte("x"), 2<<10), "3"), "INVALID_FILE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := h.serve(t, tc.req)
			if rec.Code != http.StatusBadRequest || errCode(body) != tc.wantCode {
				t.Fatalf("want 400 %s got=%d %v", tc.wantCode, rec.Code, body)
			}
		})
	}

	rec, body := h.serve(t, audioUpload(t, "audio/webm;codecs=opus", []byte("RIFFdata"), "3.0"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload: want=202 got=%d %v", rec.Code, body)
	}
	if body["status"] != "processing" || body["estimatedProcessingTime"] != 0.5 {
		t.Fatalf("upload body: got=%v", body)
	}
	audioID, _ := body["audioId"].(string)

	rec, body = h.do(t, http.MethodGet, "/api/v1/audio/"+audioID+"/status", nil)
	if rec.Code != http.StatusOK || body["status"] != "processing" {
		t.Fatalf("status: got=%d %v", rec.Code, body)
	}
	if _, ok := body["text"]; ok {
		t.Fatalf("status: text must be absent while processing")
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/audio/"+audioID+"/text", nil)
	if rec.Code != http.StatusBadRequest || errCode(body) != "AUDIO_NOT_PROCESSED" {
		t.Fatalf("text: want 400 AUDIO_NOT_PROCESSED got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/audio/not-a-uuid/status", nil)
	if rec.Code != http.StatusNotFound || errCode(body) != "AUDIO_NOT_FOUND" {
		t.Fatalf("bad id: want 404 AUDIO_NOT_FOUND got=%d %v", rec.Code, body)
	}
}

func TestEnvironmentRoutes(t *testing.T) {
	h := newRouterHarness(t, 10)

	rec, body := h.do(t, http.MethodPost, "/api/v1/environment", map[string]any{
		"location": map[string]any{"latitude": 0, "longitude": 8.3},
	})
	if rec.Code != http.StatusBadRequest || errCode(body) != "INVALID_LOCATION" {
		t.Fatalf("zero latitude: want 400 INVALID_LOCATION got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPost, "/api/v1/environment", map[string]any{
		"location":  map[string]any{"latitude": 47.05017, "longitude": 8.30931},
		"device":    map[string]any{"platform": "ios"},
		"timestamp": "2024-12-25T07:30:00+01:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: want=200 got=%d %v", rec.Code, body)
	}
	enriched, _ := body["enrichedData"].(map[string]any)
	loc, _ := enriched["location"].(map[string]any)
	if loc["latitude"] != 47.05 || loc["longitude"] != 8.31 {
		t.Fatalf("city precision: got=%v", loc)
	}
	tm, _ := enriched["time"].(map[string]any)
	if tm["timeOfDay"] != "dawn" || tm["specialDate"] != "Christmas" {
		t.Fatalf("time: got=%v", tm)
	}

	envID, _ := body["environmentId"].(string)
	rec, body = h.do(t, http.MethodGet, "/api/v1/environment/"+envID, nil)
	if rec.Code != http.StatusOK || body["environmentId"] != envID {
		t.Fatalf("get: got=%d %v", rec.Code, body)
	}
}

func TestImageRoutes(t *testing.T) {
	h := newRouterHarness(t, 10)
	c, envID := h.seed()

	rec, body := h.do(t, http.MethodPost, "/api/v1/images/generate", map[string]any{"audioId": c.ID.String()})
	if rec.Code != http.StatusBadRequest || errCode(body) != "MISSING_PARAMETERS" {
		t.Fatalf("missing env: got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPost, "/api/v1/images/generate", map[string]any{
		"audioId":         c.ID.String(),
		"environmentId":   envID,
		"stylePreference": "cubist",
	})
	if rec.Code != http.StatusBadRequest || errCode(body) != "INVALID_STYLE" {
		t.Fatalf("bad style: got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPost, "/api/v1/images/generate", map[string]any{
		"audioId":       c.ID.String(),
		"environmentId": envID,
	})
	if rec.Code != http.StatusAccepted || body["status"] != "queued" || body["estimatedTime"] != float64(15) {
		t.Fatalf("generate: got=%d %v", rec.Code, body)
	}
	requestID, _ := body["requestId"].(string)

	rec, body = h.do(t, http.MethodGet, "/api/v1/images/status/"+requestID, nil)
	if rec.Code != http.StatusOK || body["status"] != "queued" {
		t.Fatalf("status: got=%d %v", rec.Code, body)
	}
	rec, body = h.do(t, http.MethodGet, "/api/v1/images/"+requestID, nil)
	if rec.Code != http.StatusBadRequest || errCode(body) != "IMAGE_NOT_READY" {
		t.Fatalf("details before completion: got=%d %v", rec.Code, body)
	}

	// Finish the request the way the generation worker would.
	id := uuid.MustParse(requestID)
	name := artifact.FileName(id)
	imageKey, thumbKey := artifact.ImageKey(name), artifact.ThumbnailKey(name)
	_ = h.store.Put(h.dbc.Ctx, imageKey, "image/jpeg", []byte("full"))
	_ = h.store.Put(h.dbc.Ctx, thumbKey, "image/jpeg", []byte("thumb"))
	ok, err := h.artifacts.UpdateFieldsIfStatus(h.dbc, id, artifact.AllowedFrom(artifact.StatusCompleted), map[string]interface{}{
		"status":        artifact.StatusCompleted,
		"prompt_text":   "A tranquil lake",
		"file_name":     name,
		"image_key":     imageKey,
		"thumbnail_key": thumbKey,
		"image_url":     h.store.URL(imageKey),
		"thumbnail_url": h.store.URL(thumbKey),
		"generated_at":  time.Now().UTC(),
	})
	if err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/images/status/"+requestID, nil)
	if body["status"] != "completed" || body["imageId"] != requestID || body["thumbnailUrl"] == nil {
		t.Fatalf("completed status: got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/images/gallery?limit=500&sortBy=generatedAt&order=asc", nil)
	if rec.Code != http.StatusOK || body["total"] != float64(1) || body["limit"] != float64(100) || body["hasMore"] != false {
		t.Fatalf("gallery: got=%d %v", rec.Code, body)
	}
	images, _ := body["images"].([]any)
	if len(images) != 1 || images[0].(map[string]any)["location"] != "Seattle" {
		t.Fatalf("gallery images: got=%v", images)
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/images/gallery?sortBy=size", nil)
	if rec.Code != http.StatusBadRequest || errCode(body) != "INVALID_SORT" {
		t.Fatalf("bad sort: got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/images/"+requestID, nil)
	if rec.Code != http.StatusOK || body["audioText"] != "a calm lake at sunrise" || body["prompt"] != "A tranquil lake" {
		t.Fatalf("details: got=%d %v", rec.Code, body)
	}

	rec, _ = h.do(t, http.MethodGet, "/api/v1/images/"+requestID+"/export", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "full" {
		t.Fatalf("export: got=%d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="mumble-`+requestID+`.jpg"` {
		t.Fatalf("disposition: got=%q", got)
	}

	rec, body = h.do(t, http.MethodDelete, "/api/v1/images/"+requestID, nil)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("delete: got=%d %v", rec.Code, body)
	}
	rec, body = h.do(t, http.MethodDelete, "/api/v1/images/"+requestID, nil)
	if rec.Code != http.StatusNotFound || errCode(body) != "IMAGE_NOT_FOUND" {
		t.Fatalf("second delete: got=%d %v", rec.Code, body)
	}
}

func TestPreferenceRoutes(t *testing.T) {
	h := newRouterHarness(t, 10)

	rec, body := h.do(t, http.MethodGet, "/api/v1/preferences", nil)
	if rec.Code != http.StatusOK || body["imageStyle"] != "balanced" || body["lastUpdated"] == nil {
		t.Fatalf("get: got=%d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPatch, "/api/v1/preferences", map[string]any{
		"imageStyle":      "abstract",
		"privacySettings": map[string]any{"locationPrecision": "none"},
	})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("patch: got=%d %v", rec.Code, body)
	}
	prefs, _ := body["preferences"].(map[string]any)
	privacy, _ := prefs["privacySettings"].(map[string]any)
	if prefs["imageStyle"] != "abstract" || privacy["locationPrecision"] != "none" {
		t.Fatalf("patched prefs: got=%v", prefs)
	}

	rec, body = h.do(t, http.MethodPatch, "/api/v1/preferences", map[string]any{
		"privacySettings": map[string]any{"locationPrecision": "street"},
	})
	if rec.Code != http.StatusBadRequest || errCode(body) != "INVALID_LOCATION_PRECISION" {
		t.Fatalf("bad precision: got=%d %v", rec.Code, body)
	}
}

func TestSubmitRoutesAreRateLimited(t *testing.T) {
	h := newRouterHarness(t, 1)
	loc := map[string]any{"location": map[string]any{"latitude": 47.6, "longitude": -122.3}}

	if rec, body := h.do(t, http.MethodPost, "/api/v1/environment", loc); rec.Code != http.StatusOK {
		t.Fatalf("first submit: got=%d %v", rec.Code, body)
	}
	rec, body := h.do(t, http.MethodPost, "/api/v1/environment", loc)
	if rec.Code != http.StatusTooManyRequests || errCode(body) != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("second submit: want 429 got=%d %v", rec.Code, body)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After: want header")
	}
	// Reads are not limited.
	if rec, _ := h.do(t, http.MethodGet, "/api/v1/preferences", nil); rec.Code != http.StatusOK {
		t.Fatalf("read after limit: got=%d", rec.Code)
	}
}
