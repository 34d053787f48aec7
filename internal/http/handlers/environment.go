package handlers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/services"
)

type EnvironmentHandler struct {
	environments services.EnvironmentService
}

func NewEnvironmentHandler(environments services.EnvironmentService) *EnvironmentHandler {
	return &EnvironmentHandler{environments: environments}
}

type submitEnvironmentRequest struct {
	Location *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Accuracy  *float64 `json:"accuracy"`
	} `json:"location"`
	Device    json.RawMessage `json:"device"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// POST /api/v1/environment
func (h *EnvironmentHandler) Submit(c *gin.Context) {
	var req submitEnvironmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("INVALID_LOCATION", "Valid location data is required"))
		return
	}
	in := services.SubmitEnvironmentInput{
		Device:    req.Device,
		Timestamp: parseTimestamp(req.Timestamp),
	}
	if req.Location != nil {
		in.Latitude = req.Location.Latitude
		in.Longitude = req.Location.Longitude
		in.Accuracy = req.Location.Accuracy
	}

	rec, err := h.environments.Submit(dbcOf(c), deviceOf(c), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"environmentId": rec.ID.String(),
		"enrichedData":  rec.EnrichedView(),
	})
}

// GET /api/v1/environment/:environmentId
func (h *EnvironmentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "environmentId", "ENVIRONMENT_NOT_FOUND", "Environment data not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rec, err := h.environments.Get(dbcOf(c), deviceOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"environmentId": rec.ID.String(),
		"location":      rec.Location,
		"weather":       rec.Weather,
		"time":          rec.Time,
		"createdAt":     rec.CreatedAt,
	})
}

// parseTimestamp accepts an RFC 3339 string or epoch milliseconds. Anything
// else is treated as absent so the server clock is used.
func parseTimestamp(raw json.RawMessage) *time.Time {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(str)); err == nil {
			return &t
		}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}
