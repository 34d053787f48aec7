package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/realtime"
)

func waitEvent(t *testing.T, ch <-chan realtime.JobEvent) realtime.JobEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for job event")
	}
	return realtime.JobEvent{}
}

func TestMemoryBus(t *testing.T) {
	t.Parallel()
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.JobEvent, 1)
	if err := b.StartForwarder(ctx, func(ev realtime.JobEvent) { got <- ev }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	if err := b.Publish(ctx, realtime.JobEvent{Kind: realtime.JobEventSucceeded, JobID: "j1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ev := waitEvent(t, got)
	if ev.JobID != "j1" || ev.Kind != realtime.JobEventSucceeded {
		t.Fatalf("event: got=%+v", ev)
	}
	if err := b.StartForwarder(ctx, nil); err == nil {
		t.Fatalf("StartForwarder(nil): want error")
	}
}

func TestRedisBus(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	b := NewRedisBusWithClient(logger.Nop(), rdb, "test.jobs")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.JobEvent, 1)
	if err := b.StartForwarder(ctx, func(ev realtime.JobEvent) { got <- ev }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := realtime.JobEvent{Kind: realtime.JobEventFailed, JobID: "j2", EntityID: "cap-1", Error: "boom"}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ev := waitEvent(t, got)
	if ev.JobID != want.JobID || ev.Error != want.Error || ev.EntityID != want.EntityID {
		t.Fatalf("event: want=%+v got=%+v", want, ev)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("shared client should stay open after Close: %v", err)
	}
}
