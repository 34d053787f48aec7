package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/domain/device"
	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/services"
)

type PreferenceHandler struct {
	prefs services.PreferenceService
}

func NewPreferenceHandler(prefs services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// GET /api/v1/preferences
func (h *PreferenceHandler) Get(c *gin.Context) {
	p, err := h.prefs.Get(dbcOf(c), deviceOf(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, p)
}

// PATCH /api/v1/preferences
func (h *PreferenceHandler) Update(c *gin.Context) {
	var patch device.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondAPIError(c, apierr.Validation("", "Preferences body must be a JSON object"))
		return
	}
	p, err := h.prefs.Update(dbcOf(c), deviceOf(c), patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "preferences": p})
}
