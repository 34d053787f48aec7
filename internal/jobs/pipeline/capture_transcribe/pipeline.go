package capture_transcribe

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/domain/capture"
	jobrt "github.com/yungbote/mumble-backend/internal/jobs/runtime"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	captureID, ok := jc.EntityID("capture_id")
	if !ok || captureID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing capture_id"))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	rec, err := p.captures.GetByID(dbc, captureID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if rec == nil {
		// Nobody is waiting on a record that no longer exists.
		jc.Log.Warn("capture record gone, skipping", "capture_id", captureID)
		jc.Succeed("skipped", map[string]any{"capture_id": captureID.String(), "skipped": true})
		return nil
	}
	if capture.IsTerminal(rec.Status) {
		jc.Succeed("done", map[string]any{"capture_id": captureID.String(), "status": rec.Status})
		return nil
	}

	jc.Progress("download", 10)
	audio, err := p.store.Get(jc.Ctx, rec.StorageKey)
	if err != nil {
		return p.fail(jc, rec, "download", fmt.Errorf("read audio: %w", err))
	}

	jc.Progress("transcribe", 30)
	var text string
	err = keepAlive(jc, func() (terr error) {
		text, terr = p.transcriber.Transcribe(jc.Ctx, audio, rec.FileName, rec.MimeType)
		return terr
	})
	if err != nil {
		return p.fail(jc, rec, "transcribe", err)
	}

	jc.Progress("analyze", 70)
	var analysis capture.Analysis
	_ = keepAlive(jc, func() error {
		analysis = p.analyzer.Analyze(jc.Ctx, text)
		return nil
	})

	updates := map[string]interface{}{
		"status":     capture.StatusCompleted,
		"text":       text,
		"analysis":   capture.EncodeAnalysis(analysis),
		"error":      nil,
		"updated_at": p.now(),
	}
	if !p.keepsRecordings(jc, rec.DeviceID) {
		updates["expires_at"] = p.now().Add(p.shortRetention)
	}
	ok, err = p.captures.UpdateFieldsIfStatus(dbc, rec.ID, []string{capture.StatusProcessing}, updates)
	if err != nil {
		return p.fail(jc, rec, "persist", err)
	}
	if !ok {
		jc.Log.Info("capture already terminal, result dropped", "capture_id", rec.ID)
	}

	jc.Succeed("done", map[string]any{
		"capture_id": rec.ID.String(),
		"sentiment":  analysis.Sentiment,
		"chars":      len(text),
	})
	return nil
}

func (p *Pipeline) keepsRecordings(jc *jobrt.Context, deviceID string) bool {
	dev, err := p.devices.GetByDeviceID(dbctx.Context{Ctx: jc.Ctx}, deviceID)
	if err != nil {
		jc.Log.Warn("device lookup failed, using short retention", "device_id", deviceID, "error", err)
		return false
	}
	return dev != nil && dev.SaveAudioRecordings
}

// fail records err on the capture and the run. The error is not returned to
// the worker because the run has already been terminated here.
func (p *Pipeline) fail(jc *jobrt.Context, rec *capture.CaptureRecord, stage string, err error) error {
	msg := err.Error()
	if _, uerr := p.captures.UpdateFieldsIfStatus(dbctx.Context{Ctx: jc.Ctx}, rec.ID, []string{capture.StatusProcessing}, map[string]interface{}{
		"status":     capture.StatusError,
		"error":      msg,
		"updated_at": p.now(),
	}); uerr != nil {
		jc.Log.Warn("capture error update failed", "capture_id", rec.ID, "error", uerr)
	}
	jc.Fail(stage, err)
	return nil
}

// Interrupt moves a capture stuck in processing to error.
func (p *Pipeline) Interrupt(jc *jobrt.Context, reason string) error {
	captureID, ok := jc.EntityID("capture_id")
	if !ok {
		return nil
	}
	_, err := p.captures.UpdateFieldsIfStatus(dbctx.Context{Ctx: jc.Ctx}, captureID, []string{capture.StatusProcessing}, map[string]interface{}{
		"status":     capture.StatusError,
		"error":      reason,
		"updated_at": p.now(),
	})
	return err
}

func keepAlive(jc *jobrt.Context, fn func() error) error {
	defer jc.KeepAlive()()
	return fn()
}
