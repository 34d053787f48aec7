package artifact_generate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
	jobrt "github.com/yungbote/mumble-backend/internal/jobs/runtime"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/mumble-backend/internal/pkg/errors"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
	"github.com/yungbote/mumble-backend/internal/prompt"
	"github.com/yungbote/mumble-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	artifactID, ok := jc.EntityID("artifact_id")
	if !ok || artifactID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing artifact_id"))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	rec, err := p.artifacts.GetByID(dbc, artifactID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if rec == nil {
		jc.Log.Warn("artifact request gone, skipping", "artifact_id", artifactID)
		jc.Succeed("skipped", map[string]any{"artifact_id": artifactID.String(), "skipped": true})
		return nil
	}
	if artifact.IsTerminal(rec.Status) {
		jc.Succeed("done", map[string]any{"artifact_id": artifactID.String(), "status": rec.Status})
		return nil
	}

	jc.Progress("claim", 5)
	ok, err = p.artifacts.UpdateFieldsIfStatus(dbc, rec.ID, artifact.AllowedFrom(artifact.StatusProcessing), map[string]interface{}{
		"status":     artifact.StatusProcessing,
		"updated_at": p.now(),
	})
	if err != nil {
		jc.Fail("claim", err)
		return nil
	}
	if !ok {
		// Another run owns the record (or finished it); only the claimer may write.
		jc.Log.Info("artifact claimed elsewhere, skipping", "artifact_id", rec.ID)
		jc.Succeed("skipped", map[string]any{"artifact_id": rec.ID.String(), "skipped": true})
		return nil
	}

	jc.Progress("load", 10)
	capRec, ctxRec, err := p.loadReferences(dbc, rec)
	if err != nil {
		return p.fail(jc, rec, "load", err)
	}

	jc.Progress("prompt", 20)
	res := p.synthesizer.Synthesize(prompt.Input{
		Text:            derefText(capRec),
		Analysis:        capRec.DecodeAnalysis(),
		Context:         ctxRec,
		StylePreference: rec.StylePreference,
	})
	if _, err := p.artifacts.UpdateFieldsIfStatus(dbc, rec.ID, []string{artifact.StatusProcessing}, map[string]interface{}{
		"prompt_text": res.Prompt,
		"updated_at":  p.now(),
	}); err != nil {
		return p.fail(jc, rec, "prompt", err)
	}
	jc.Log.Debug("prompt synthesized", "artifact_id", rec.ID, "family", res.Family, "style", res.Style, "subject", res.Subject)

	jc.Progress("generate", 30)
	gen, err := p.generate(jc, res.Prompt)
	if err != nil {
		return p.fail(jc, rec, "generate", err)
	}

	jc.Progress("render", 75)
	img, err := services.RenderImage(gen.Bytes)
	if err != nil {
		return p.fail(jc, rec, "render", err)
	}

	jc.Progress("store", 85)
	name := artifact.FileName(rec.ID)
	imageKey, thumbKey := artifact.ImageKey(name), artifact.ThumbnailKey(name)
	if err := p.store.Put(jc.Ctx, imageKey, "image/jpeg", img.Full); err != nil {
		return p.fail(jc, rec, "store", fmt.Errorf("store image: %w", err))
	}
	if err := p.store.Put(jc.Ctx, thumbKey, "image/jpeg", img.Thumbnail); err != nil {
		p.removeBlobs(jc, imageKey)
		return p.fail(jc, rec, "store", fmt.Errorf("store thumbnail: %w", err))
	}

	now := p.now()
	ok, err = p.artifacts.UpdateFieldsIfStatus(dbc, rec.ID, artifact.AllowedFrom(artifact.StatusCompleted), map[string]interface{}{
		"status":        artifact.StatusCompleted,
		"prompt_text":   res.Prompt,
		"file_name":     name,
		"image_key":     imageKey,
		"thumbnail_key": thumbKey,
		"image_url":     p.store.URL(imageKey),
		"thumbnail_url": p.store.URL(thumbKey),
		"error":         nil,
		"generated_at":  now,
		"updated_at":    now,
	})
	if err != nil {
		p.removeBlobs(jc, imageKey, thumbKey)
		return p.fail(jc, rec, "persist", err)
	}
	if !ok {
		p.removeBlobs(jc, imageKey, thumbKey)
		jc.Log.Info("artifact already terminal, result dropped", "artifact_id", rec.ID)
	}

	jc.Succeed("done", map[string]any{
		"artifact_id": rec.ID.String(),
		"image_key":   imageKey,
		"width":       img.Width,
		"height":      img.Height,
	})
	return nil
}

func (p *Pipeline) loadReferences(dbc dbctx.Context, rec *artifact.ArtifactRequest) (*capture.CaptureRecord, *environment.ContextRecord, error) {
	capRec, err := p.captures.GetByID(dbc, rec.CaptureID)
	if err != nil {
		return nil, nil, err
	}
	ctxRec, err := p.contexts.GetByID(dbc, rec.ContextID)
	if err != nil {
		return nil, nil, err
	}
	if capRec == nil || ctxRec == nil {
		return nil, nil, pkgerrors.ErrMissingReference
	}
	return capRec, ctxRec, nil
}

func (p *Pipeline) generate(jc *jobrt.Context, text string) (openai.ImageGeneration, error) {
	defer jc.KeepAlive()()
	return p.ai.GenerateImage(jc.Ctx, text)
}

func derefText(rec *capture.CaptureRecord) string {
	if rec.Text == nil {
		return ""
	}
	return *rec.Text
}

func (p *Pipeline) removeBlobs(jc *jobrt.Context, keys ...string) {
	for _, k := range keys {
		if err := p.store.Delete(jc.Ctx, k); err != nil {
			jc.Log.Warn("orphan blob cleanup failed", "key", k, "error", err)
		}
	}
}

func (p *Pipeline) fail(jc *jobrt.Context, rec *artifact.ArtifactRequest, stage string, err error) error {
	msg := err.Error()
	if errors.Is(err, pkgerrors.ErrMissingReference) {
		msg = "Required data not found"
	}
	if _, uerr := p.artifacts.UpdateFieldsIfStatus(dbctx.Context{Ctx: jc.Ctx}, rec.ID, artifact.AllowedFrom(artifact.StatusError), map[string]interface{}{
		"status":     artifact.StatusError,
		"error":      msg,
		"updated_at": p.now(),
	}); uerr != nil {
		jc.Log.Warn("artifact error update failed", "artifact_id", rec.ID, "error", uerr)
	}
	jc.Fail(stage, err)
	return nil
}

// Interrupt moves an artifact stuck in queued or processing to error.
func (p *Pipeline) Interrupt(jc *jobrt.Context, reason string) error {
	artifactID, ok := jc.EntityID("artifact_id")
	if !ok {
		return nil
	}
	_, err := p.artifacts.UpdateFieldsIfStatus(dbctx.Context{Ctx: jc.Ctx}, artifactID, artifact.AllowedFrom(artifact.StatusError), map[string]interface{}{
		"status":     artifact.StatusError,
		"error":      reason,
		"updated_at": p.now(),
	})
	return err
}
