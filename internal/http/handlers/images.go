package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/services"
)

// EstimatedGenerationSeconds is what the generate call promises the client.
const EstimatedGenerationSeconds = 15

type ImageHandler struct {
	artifacts services.ArtifactService
}

func NewImageHandler(artifacts services.ArtifactService) *ImageHandler {
	return &ImageHandler{artifacts: artifacts}
}

type generateImageRequest struct {
	AudioID         string `json:"audioId"`
	EnvironmentID   string `json:"environmentId"`
	StylePreference string `json:"stylePreference"`
}

// POST /api/v1/images/generate
func (h *ImageHandler) Generate(c *gin.Context) {
	var req generateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("MISSING_PARAMETERS", "Audio ID and Environment ID are required"))
		return
	}
	rec, err := h.artifacts.Request(dbcOf(c), deviceOf(c), services.GenerateInput{
		AudioID:         req.AudioID,
		EnvironmentID:   req.EnvironmentID,
		StylePreference: req.StylePreference,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"requestId":     rec.ID.String(),
		"status":        rec.Status,
		"estimatedTime": EstimatedGenerationSeconds,
	})
}

// GET /api/v1/images/status/:requestId
func (h *ImageHandler) Status(c *gin.Context) {
	id, err := pathID(c, "requestId", "REQUEST_NOT_FOUND", "Image generation request not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rec, err := h.artifacts.Get(dbcOf(c), deviceOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, rec.StatusView())
}

// GET /api/v1/images/gallery?limit=&offset=&sortBy=&order=
func (h *ImageHandler) Gallery(c *gin.Context) {
	in := services.GalleryInput{
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
		SortBy: strings.TrimSpace(c.Query("sortBy")),
		Order:  strings.TrimSpace(c.Query("order")),
	}
	page, err := h.artifacts.Gallery(dbcOf(c), deviceOf(c), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if page.Images == nil {
		page.Images = []artifact.GalleryItem{}
	}
	response.RespondOK(c, page)
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}

// GET /api/v1/images/:imageId
func (h *ImageHandler) Details(c *gin.Context) {
	id, err := pathID(c, "imageId", "IMAGE_NOT_FOUND", "Image not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	details, err := h.artifacts.Details(dbcOf(c), deviceOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, details)
}

// GET /api/v1/images/:imageId/export
func (h *ImageHandler) Export(c *gin.Context) {
	id, err := pathID(c, "imageId", "IMAGE_NOT_FOUND", "Image not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	img, err := h.artifacts.Export(dbcOf(c), deviceOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.FileName))
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// DELETE /api/v1/images/:imageId
func (h *ImageHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "imageId", "IMAGE_NOT_FOUND", "Image not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if err := h.artifacts.Delete(dbcOf(c), deviceOf(c), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "message": "Image deleted successfully"})
}
