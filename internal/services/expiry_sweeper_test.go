package services

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/mumble-backend/internal/data/repos"
	"github.com/yungbote/mumble-backend/internal/data/repos/testutil"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/pkg/dbctx"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
)

func TestExpirySweeper(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	store := newLocalStore(t)
	captures := repos.NewCaptureRepo(db, log)

	now := time.Now().UTC()
	expired := capture.New("dev-1", "audio/old.webm", "old.webm", "audio/webm", 4, 1, now.Add(-48*time.Hour))
	expired.ExpiresAt = now.Add(-time.Hour)
	fresh := capture.New("dev-1", "audio/new.webm", "new.webm", "audio/webm", 4, 1, now)
	for _, rec := range []*capture.CaptureRecord{expired, fresh} {
		if err := store.Put(ctx, rec.StorageKey, rec.MimeType, []byte("OggS")); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := captures.Create(dbctx.Context{Ctx: ctx}, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	sweeper := NewExpirySweeper(log, captures, store)
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed: want=1 got=%d", n)
	}
	if got, _ := captures.GetByID(dbctx.Context{Ctx: ctx}, expired.ID); got != nil {
		t.Fatalf("expired record: want deleted")
	}
	if _, err := store.Get(ctx, expired.StorageKey); err != blob.ErrNotFound {
		t.Fatalf("expired audio: want ErrNotFound got=%v", err)
	}
	if got, _ := captures.GetByID(dbctx.Context{Ctx: ctx}, fresh.ID); got == nil {
		t.Fatalf("fresh record: want kept")
	}

	n, err = sweeper.SweepOnce(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
}
