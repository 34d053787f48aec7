package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/services"
)

type AudioHandler struct {
	captures services.CaptureService
	maxBytes int64
}

func NewAudioHandler(captures services.CaptureService, maxBytes int64) *AudioHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &AudioHandler{captures: captures, maxBytes: maxBytes}
}

// POST /api/v1/audio
func (h *AudioHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		// older clients name the part audioFile
		fh, err = c.FormFile("audioFile")
	}
	if err != nil || fh == nil {
		response.RespondAPIError(c, apierr.BadRequest("MISSING_FILE", "Audio file is required"))
		return
	}

	rawDuration := strings.TrimSpace(c.PostForm("duration"))
	if rawDuration == "" {
		response.RespondAPIError(c, apierr.BadRequest("MISSING_DURATION", "Audio duration is required"))
		return
	}
	duration, err := strconv.ParseFloat(rawDuration, 64)
	if err != nil || duration <= 0 {
		response.RespondAPIError(c, apierr.BadRequest("MISSING_DURATION", "Audio duration must be a positive number"))
		return
	}
	if fh.Size > h.maxBytes {
		response.RespondAPIError(c, apierr.BadRequest("INVALID_FILE", fmt.Sprintf("Audio file exceeds %d bytes", h.maxBytes)))
		return
	}

	data, err := readPart(fh, h.maxBytes)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	rec, err := h.captures.Submit(dbcOf(c), deviceOf(c), services.SubmitAudioInput{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
		Duration: duration,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"audioId":                 rec.ID.String(),
		"status":                  rec.Status,
		"estimatedProcessingTime": capture.EstimatedProcessingSeconds(rec.Duration),
	})
}

func readPart(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apierr.BadRequest("INVALID_FILE", "Audio file could not be read")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apierr.BadRequest("INVALID_FILE", "Audio file could not be read")
	}
	if int64(len(data)) > maxBytes {
		return nil, apierr.BadRequest("INVALID_FILE", fmt.Sprintf("Audio file exceeds %d bytes", maxBytes))
	}
	return data, nil
}

// GET /api/v1/audio/:audioId/status
func (h *AudioHandler) Status(c *gin.Context) {
	id, err := pathID(c, "audioId", "AUDIO_NOT_FOUND", "Audio not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rec, err := h.captures.Get(dbcOf(c), deviceOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, rec.StatusView())
}

// GET /api/v1/audio/:audioId/text
func (h *AudioHandler) Text(c *gin.Context) {
	id, err := pathID(c, "audioId", "AUDIO_NOT_FOUND", "Audio not found")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	rec, err := h.captures.Get(dbcOf(c), deviceOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	text, err := services.TranscriptOf(rec)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"audioId":   rec.ID.String(),
		"text":      text,
		"createdAt": rec.CreatedAt,
	})
}
