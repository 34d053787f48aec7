package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/jobs/runtime"
	"github.com/yungbote/mumble-backend/internal/observability"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/realtime"
	"github.com/yungbote/mumble-backend/internal/realtime/bus"
)

// ErrInterrupted is recorded on runs (and their records) found stuck in running.
var ErrInterrupted = errors.New("processing interrupted")

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	StaleRunning time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		PollInterval: envutil.Millis("WORKER_POLL_INTERVAL_MS", time.Second),
		StaleRunning: envutil.Minutes("WORKER_STALE_RUNNING_MINUTES", 10*time.Minute),
	}
}

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	events   bus.Bus
	cfg      Config

	wg sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, events bus.Bus, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StaleRunning <= 0 {
		cfg.StaleRunning = 10 * time.Minute
	}
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		events:   events,
		cfg:      cfg,
	}
}

// Start launches the claim loops and the stale sweeper. It does not block.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool",
		"concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval,
		"stale_running", w.cfg.StaleRunning,
	)

	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweepLoop(ctx)
	}()
}

// Wait blocks until every loop started by Start has returned.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

func (w *Worker) sweepLoop(ctx context.Context) {
	interval := w.cfg.StaleRunning / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.SweepStale(ctx); err != nil {
				w.log.Warn("stale job sweep failed", "error", err)
			} else if n > 0 {
				w.log.Warn("interrupted stale jobs", "count", n)
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx})
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.execute(ctx, job)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	start := time.Now()
	ctx, span := observability.StartJobSpan(ctx, job.JobType, job.ID.String())
	defer func() {
		span.End()
		if metrics := observability.Current(); metrics != nil {
			metrics.ObserveJob(job.JobType, job.Status, time.Since(start))
		}
	}()

	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.events, w.log)
	jc.HeartbeatEvery = w.cfg.StaleRunning / 4
	w.publishStarted(jc)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		jc.Log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			jc.Log.Error("Job handler panic", "panic", r)
			w.interrupt(jc, h)
			jc.Fail("panic", errFromRecover(r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Most pipelines call jc.Fail themselves; this is a safety net.
		jc.Fail("run", runErr)
		return
	}
	if job.Status == types.StatusRunning {
		jc.Succeed("done", nil)
	}
}

// SweepStale fails runs whose heartbeat is older than StaleRunning and lets
// their handler terminate the record the run was driving.
func (w *Worker) SweepStale(ctx context.Context) (int, error) {
	stale, err := w.repo.ListStaleRunning(dbctx.Context{Ctx: ctx}, w.cfg.StaleRunning, 50)
	if err != nil {
		return 0, err
	}
	for _, job := range stale {
		jc := runtime.NewContext(ctx, w.db, job, w.repo, w.events, w.log)
		if h, ok := w.registry.Get(job.JobType); ok {
			w.interrupt(jc, h)
		}
		jc.Fail("stale", ErrInterrupted)
	}
	return len(stale), nil
}

// interrupt lets the handler move the record its run was driving to error.
func (w *Worker) interrupt(jc *runtime.Context, h runtime.Handler) {
	in, ok := h.(runtime.Interrupter)
	if !ok {
		return
	}
	if err := in.Interrupt(jc, ErrInterrupted.Error()); err != nil {
		jc.Log.Warn("interrupt handler failed", "error", err)
	}
}

func (w *Worker) publishStarted(jc *runtime.Context) {
	if w.events == nil {
		return
	}
	ev := realtime.JobEvent{
		Kind:       realtime.JobEventStarted,
		JobID:      jc.Job.ID.String(),
		JobType:    jc.Job.JobType,
		EntityType: jc.Job.EntityType,
		DeviceID:   jc.Job.DeviceID,
		Stage:      jc.Job.Stage,
		At:         time.Now().UTC(),
	}
	if jc.Job.EntityID != nil {
		ev.EntityID = jc.Job.EntityID.String()
	}
	if err := w.events.Publish(jc.Ctx, ev); err != nil {
		jc.Log.Warn("job event publish failed", "kind", ev.Kind, "error", err)
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
