package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

const expiryBatchSize = 100

// ExpirySweeper removes capture records (and their audio) past expires_at.
type ExpirySweeper struct {
	log      *logger.Logger
	captures repos.CaptureRepo
	store    blob.Store
	interval time.Duration
	now      func() time.Time
}

func NewExpirySweeper(baseLog *logger.Logger, captures repos.CaptureRepo, store blob.Store) *ExpirySweeper {
	return &ExpirySweeper{
		log:      baseLog.With("service", "ExpirySweeper"),
		captures: captures,
		store:    store,
		interval: envutil.Minutes("EXPIRY_SWEEP_INTERVAL_MINUTES", 15*time.Minute),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("expiry sweep failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

// SweepOnce deletes expired captures in batches until none remain.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	removed := 0
	for {
		recs, err := s.captures.ListExpired(dbc, s.now(), expiryBatchSize)
		if err != nil {
			return removed, fmt.Errorf("list expired: %w", err)
		}
		batch := 0
		for _, rec := range recs {
			if rec.StorageKey != "" {
				if err := s.store.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
					s.log.Warn("delete expired audio failed", "capture_id", rec.ID, "key", rec.StorageKey, "error", err)
					continue
				}
			}
			if err := s.captures.Delete(dbc, rec.ID); err != nil {
				return removed, fmt.Errorf("delete capture %s: %w", rec.ID, err)
			}
			removed++
			batch++
		}
		if len(recs) < expiryBatchSize || batch == 0 {
			break
		}
	}
	if removed > 0 {
		s.log.Info("expired captures removed", "count", removed)
	}
	return removed, nil
}
