package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/ctxutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/realtime"
	"github.com/yungbote/mumble-backend/internal/realtime/bus"
)

/*
Context is the execution handle for a single claimed job_run.
Pipelines never touch job_run directly: they report through Progress,
Fail and Succeed, which persist the transition and publish a job event.
*/
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Events bus.Bus
	Log    *logger.Logger

	// HeartbeatEvery is the KeepAlive period. Zero means DefaultHeartbeatEvery.
	HeartbeatEvery time.Duration

	payload map[string]any
}

const DefaultHeartbeatEvery = 30 * time.Second

// NewContext decodes the payload eagerly. A malformed payload leaves an empty
// map; handlers validate the fields they need.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, events bus.Bus, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Events: events,
		Log:    log,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	if job != nil {
		c.Log = c.Log.With("job_id", job.ID, "job_type", job.JobType)
		if td := ctxutil.GetTraceData(c.Ctx); td != nil {
			c.Log = c.Log.With("trace_id", td.TraceID, "request_id", td.RequestID)
		}
	}
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// PayloadUUID returns (uuid.Nil, false) when the key is missing or does not parse.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.PayloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EntityID prefers the job row's entity column and falls back to the payload.
func (c *Context) EntityID(payloadKey string) (uuid.UUID, bool) {
	if c.Job != nil && c.Job.EntityID != nil && *c.Job.EntityID != uuid.Nil {
		return *c.Job.EntityID, true
	}
	return c.PayloadUUID(payloadKey)
}

func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Progress records a non-terminal stage and refreshes the heartbeat.
func (c *Context) Progress(stage string, pct int) {
	if c == nil {
		return
	}
	now := time.Now().UTC()

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsIfStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{types.StatusRunning}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil {
			c.Log.Warn("job progress update failed", "stage", stage, "error", err)
		}
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	c.publish(realtime.JobEventProgress, "")
}

// Fail marks the run failed. It is a no-op once the run is terminal.
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, uerr := c.Repo.UpdateFieldsIfStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{types.StatusQueued, types.StatusRunning}, map[string]interface{}{
			"status":      types.StatusFailed,
			"stage":       stage,
			"error":       msg,
			"locked_at":   nil,
			"finished_at": now,
			"updated_at":  now,
		})
		if uerr != nil {
			c.Log.Warn("job fail update failed", "stage", stage, "error", uerr)
		}
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = types.StatusFailed
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.LockedAt = nil
		c.Job.FinishedAt = &now
		c.Job.UpdatedAt = now
	}
	c.Log.Warn("job failed", "stage", stage, "error", msg)
	c.publish(realtime.JobEventFailed, msg)
}

// Succeed marks the run succeeded and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsIfStatus(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, []string{types.StatusRunning}, map[string]interface{}{
			"status":       types.StatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"finished_at":  now,
			"updated_at":   now,
		})
		if err != nil {
			c.Log.Warn("job succeed update failed", "stage", finalStage, "error", err)
		}
		if !ok {
			return
		}
	}

	if c.Job != nil {
		c.Job.Status = types.StatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.FinishedAt = &now
		c.Job.UpdatedAt = now
	}
	c.publish(realtime.JobEventSucceeded, "")
}

func (c *Context) publish(kind realtime.JobEventKind, errMsg string) {
	if c.Events == nil || c.Job == nil {
		return
	}
	ev := realtime.JobEvent{
		Kind:       kind,
		JobID:      c.Job.ID.String(),
		JobType:    c.Job.JobType,
		EntityType: c.Job.EntityType,
		DeviceID:   c.Job.DeviceID,
		Stage:      c.Job.Stage,
		Progress:   c.Job.Progress,
		Error:      errMsg,
		At:         time.Now().UTC(),
	}
	if c.Job.EntityID != nil {
		ev.EntityID = c.Job.EntityID.String()
	}
	if err := c.Events.Publish(c.ctx(), ev); err != nil {
		c.Log.Warn("job event publish failed", "kind", kind, "error", err)
	}
}

// KeepAlive refreshes heartbeat_at until stop is called. Wrap upstream calls
// that can outlast the stale-running window with it.
func (c *Context) KeepAlive() (stop func()) {
	if c == nil || c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return func() {}
	}
	every := c.HeartbeatEvery
	if every <= 0 {
		every = DefaultHeartbeatEvery
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-c.ctx().Done():
				return
			case <-ticker.C:
				if err := c.Repo.Heartbeat(dbctx.Context{Ctx: c.ctx()}, c.Job.ID); err != nil {
					c.Log.Warn("job heartbeat failed", "error", err)
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
