package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/pkg/pointers"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

const (
	DefaultGalleryLimit = 20
	MaxGalleryLimit     = 100
)

type GenerateInput struct {
	AudioID         string
	EnvironmentID   string
	StylePreference string
}

type GalleryInput struct {
	Limit  int
	Offset int
	SortBy string
	Order  string
}

type GalleryPage struct {
	Images  []artifact.GalleryItem `json:"images"`
	Total   int64                  `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
	HasMore bool                   `json:"hasMore"`
}

type DetailsEnvironment struct {
	Location struct {
		PlaceName string `json:"placeName"`
		Country   string `json:"country"`
	} `json:"location"`
	Weather struct {
		Condition   string  `json:"condition"`
		Temperature float64 `json:"temperature"`
	} `json:"weather"`
	Time struct {
		TimeOfDay string `json:"timeOfDay"`
	} `json:"time"`
}

type ArtifactDetails struct {
	ImageID      string              `json:"imageId"`
	ImageURL     string              `json:"imageUrl"`
	ThumbnailURL string              `json:"thumbnailUrl"`
	Prompt       string              `json:"prompt"`
	AudioText    *string             `json:"audioText"`
	CreatedAt    time.Time           `json:"createdAt"`
	Environment  *DetailsEnvironment `json:"environment"`
}

type ExportedImage struct {
	Data        []byte
	FileName    string
	ContentType string
}

type ArtifactService interface {
	Request(dbc dbctx.Context, deviceID string, in GenerateInput) (*artifact.ArtifactRequest, error)
	Get(dbc dbctx.Context, deviceID string, id uuid.UUID) (*artifact.ArtifactRequest, error)
	Gallery(dbc dbctx.Context, deviceID string, in GalleryInput) (*GalleryPage, error)
	Details(dbc dbctx.Context, deviceID string, id uuid.UUID) (*ArtifactDetails, error)
	Export(dbc dbctx.Context, deviceID string, id uuid.UUID) (*ExportedImage, error)
	Delete(dbc dbctx.Context, deviceID string, id uuid.UUID) error
}

type artifactService struct {
	db        *gorm.DB
	log       *logger.Logger
	devices   repos.DeviceRepo
	captures  repos.CaptureRepo
	contexts  repos.ContextRepo
	artifacts repos.ArtifactRepo
	store     blob.Store
	jobs      JobService
}

func NewArtifactService(
	db *gorm.DB,
	baseLog *logger.Logger,
	devices repos.DeviceRepo,
	captures repos.CaptureRepo,
	contexts repos.ContextRepo,
	artifacts repos.ArtifactRepo,
	store blob.Store,
	jobs JobService,
) ArtifactService {
	return &artifactService{
		db:        db,
		log:       baseLog.With("service", "ArtifactService"),
		devices:   devices,
		captures:  captures,
		contexts:  contexts,
		artifacts: artifacts,
		store:     store,
		jobs:      jobs,
	}
}

var (
	errRequestNotFound = apierr.NotFound("REQUEST_NOT_FOUND", "Image generation request not found")
	errImageNotFound   = apierr.NotFound("IMAGE_NOT_FOUND", "Image not found")
	errImageNotReady   = apierr.BadRequest("IMAGE_NOT_READY", "Image generation not completed")
)

func (s *artifactService) Request(dbc dbctx.Context, deviceID string, in GenerateInput) (*artifact.ArtifactRequest, error) {
	audioRaw, envRaw := strings.TrimSpace(in.AudioID), strings.TrimSpace(in.EnvironmentID)
	if audioRaw == "" || envRaw == "" {
		return nil, apierr.BadRequest("MISSING_PARAMETERS", "Audio ID and Environment ID are required")
	}

	style := strings.ToLower(strings.TrimSpace(in.StylePreference))
	if style != "" && !artifact.IsValidStyle(style) {
		return nil, apierr.BadRequest("INVALID_STYLE", "Unknown style preference")
	}

	capRec, err := s.loadCapture(dbc, deviceID, audioRaw)
	if err != nil {
		return nil, err
	}
	ctxRec, err := s.loadContext(dbc, deviceID, envRaw)
	if err != nil {
		return nil, err
	}

	if style == "" {
		style = artifact.StyleBalanced
		if dev, derr := s.devices.GetByDeviceID(dbc, deviceID); derr == nil && dev != nil && artifact.IsValidStyle(dev.ImageStyle) {
			style = dev.ImageStyle
		}
	}

	rec := artifact.New(deviceID, capRec.ID, ctxRec.ID, style, time.Now().UTC())
	if err := s.artifacts.Create(dbc, rec); err != nil {
		return nil, fmt.Errorf("create artifact request: %w", err)
	}

	entityID := rec.ID
	if _, err := s.jobs.Enqueue(dbc, deviceID, types.TypeArtifactGenerate, types.EntityArtifact, &entityID, map[string]any{
		"artifact_id": rec.ID.String(),
	}); err != nil {
		_, _ = s.artifacts.UpdateFieldsIfStatus(dbc, rec.ID, artifact.AllowedFrom(artifact.StatusError), map[string]interface{}{
			"status": artifact.StatusError,
			"error":  "failed to queue generation",
		})
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}

	s.log.Info("artifact requested", "artifact_id", rec.ID, "capture_id", capRec.ID, "context_id", ctxRec.ID, "style", style)
	return rec, nil
}

func (s *artifactService) loadCapture(dbc dbctx.Context, deviceID, raw string) (*capture.CaptureRecord, error) {
	notFound := apierr.NotFound("AUDIO_NOT_FOUND", "Audio not found")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, notFound
	}
	rec, err := s.captures.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.DeviceID != deviceID {
		return nil, notFound
	}
	return rec, nil
}

func (s *artifactService) loadContext(dbc dbctx.Context, deviceID, raw string) (*environment.ContextRecord, error) {
	notFound := apierr.NotFound("ENVIRONMENT_NOT_FOUND", "Environment data not found")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, notFound
	}
	rec, err := s.contexts.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.DeviceID != deviceID {
		return nil, notFound
	}
	return rec, nil
}

func (s *artifactService) Get(dbc dbctx.Context, deviceID string, id uuid.UUID) (*artifact.ArtifactRequest, error) {
	rec, err := s.artifacts.GetByIDForDevice(dbc, id, deviceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errRequestNotFound
	}
	return rec, nil
}

// NormalizeGallery clamps paging and rejects unknown sort keys.
func NormalizeGallery(in GalleryInput) (GalleryInput, error) {
	if in.Limit <= 0 {
		in.Limit = DefaultGalleryLimit
	}
	if in.Limit > MaxGalleryLimit {
		in.Limit = MaxGalleryLimit
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	switch in.SortBy {
	case "":
		in.SortBy = "createdAt"
	case "createdAt", "generatedAt":
	default:
		return in, apierr.Validation("INVALID_SORT", "sortBy must be createdAt or generatedAt")
	}
	switch strings.ToLower(in.Order) {
	case "", "desc":
		in.Order = "desc"
	case "asc":
		in.Order = "asc"
	default:
		return in, apierr.Validation("INVALID_SORT", "order must be asc or desc")
	}
	return in, nil
}

func (s *artifactService) Gallery(dbc dbctx.Context, deviceID string, in GalleryInput) (*GalleryPage, error) {
	in, err := NormalizeGallery(in)
	if err != nil {
		return nil, err
	}
	recs, total, err := s.artifacts.ListCompleted(dbc, repos.GalleryQuery{
		DeviceID: deviceID,
		Limit:    in.Limit,
		Offset:   in.Offset,
		SortBy:   in.SortBy,
		Desc:     in.Order == "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ContextID)
	}
	ctxs, err := s.contexts.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load gallery contexts: %w", err)
	}
	places := make(map[uuid.UUID]string, len(ctxs))
	for _, c := range ctxs {
		places[c.ID] = c.Location.PlaceName
	}

	items := make([]artifact.GalleryItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, r.GalleryItem(places[r.ContextID]))
	}
	return &GalleryPage{
		Images:  items,
		Total:   total,
		Limit:   in.Limit,
		Offset:  in.Offset,
		HasMore: total > int64(in.Offset+len(items)),
	}, nil
}

func (s *artifactService) completed(dbc dbctx.Context, deviceID string, id uuid.UUID) (*artifact.ArtifactRequest, error) {
	rec, err := s.artifacts.GetByIDForDevice(dbc, id, deviceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errImageNotFound
	}
	if rec.Status != artifact.StatusCompleted {
		return nil, errImageNotReady
	}
	return rec, nil
}

func (s *artifactService) Details(dbc dbctx.Context, deviceID string, id uuid.UUID) (*ArtifactDetails, error) {
	rec, err := s.completed(dbc, deviceID, id)
	if err != nil {
		return nil, err
	}
	out := &ArtifactDetails{
		ImageID:      rec.ID.String(),
		ImageURL:     pointers.Deref(rec.ImageURL),
		ThumbnailURL: pointers.Deref(rec.ThumbnailURL),
		Prompt:       pointers.Deref(rec.PromptText),
		CreatedAt:    rec.CreatedAt,
	}

	capRec, err := s.captures.GetByID(dbc, rec.CaptureID)
	if err != nil {
		return nil, err
	}
	if capRec != nil {
		out.AudioText = capRec.Text
	}

	ctxRec, err := s.contexts.GetByID(dbc, rec.ContextID)
	if err != nil {
		return nil, err
	}
	if ctxRec != nil {
		env := &DetailsEnvironment{}
		env.Location.PlaceName = ctxRec.Location.PlaceName
		env.Location.Country = ctxRec.Location.Country
		env.Weather.Condition = ctxRec.Weather.Condition
		env.Weather.Temperature = ctxRec.Weather.Temperature
		env.Time.TimeOfDay = ctxRec.Time.TimeOfDay
		out.Environment = env
	}
	return out, nil
}

func (s *artifactService) Export(dbc dbctx.Context, deviceID string, id uuid.UUID) (*ExportedImage, error) {
	rec, err := s.completed(dbc, deviceID, id)
	if err != nil {
		return nil, err
	}
	if rec.ImageKey == nil {
		return nil, apierr.NotFound("FILE_NOT_FOUND", "Image file not found")
	}
	data, err := s.store.Get(dbc.Ctx, *rec.ImageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apierr.NotFound("FILE_NOT_FOUND", "Image file not found")
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &ExportedImage{
		Data:        data,
		FileName:    "mumble-" + rec.ID.String() + ".jpg",
		ContentType: "image/jpeg",
	}, nil
}

// Delete removes both blobs before the record so no file outlives it.
func (s *artifactService) Delete(dbc dbctx.Context, deviceID string, id uuid.UUID) error {
	rec, err := s.artifacts.GetByIDForDevice(dbc, id, deviceID)
	if err != nil {
		return err
	}
	if rec == nil {
		return errImageNotFound
	}
	for _, key := range []*string{rec.ImageKey, rec.ThumbnailKey} {
		if key == nil || *key == "" {
			continue
		}
		if err := s.store.Delete(dbc.Ctx, *key); err != nil && !errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("delete blob %s: %w", *key, err)
		}
	}
	if err := s.artifacts.Delete(dbc, rec.ID); err != nil {
		return fmt.Errorf("delete artifact record: %w", err)
	}
	s.log.Info("artifact deleted", "artifact_id", rec.ID)
	return nil
}
