package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/mumble-backend/pkg/client"
)

func newFakePoller(opts Options) (*Poller, *[]time.Duration) {
	var slept []time.Duration
	p := New(opts)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return p, &slept
}

func TestFirstDelay(t *testing.T) {
	t.Parallel()
	o := DefaultOptions()
	cases := []struct {
		estimate time.Duration
		want     time.Duration
	}{
		{15 * time.Second, time.Second},
		{5 * time.Second, 500 * time.Millisecond},
		{0, 0},
	}
	for _, tc := range cases {
		if got := o.FirstDelay(tc.estimate); got != tc.want {
			t.Fatalf("FirstDelay(%s): want=%s got=%s", tc.estimate, tc.want, got)
		}
	}
	o.InitialDelay = 2 * time.Second
	if got := o.FirstDelay(15 * time.Second); got != 2*time.Second {
		t.Fatalf("FirstDelay override: want=2s got=%s", got)
	}
}

func TestScheduleIsBoundedAndNonDecreasing(t *testing.T) {
	t.Parallel()
	o := DefaultOptions()
	s := o.Schedule(15 * time.Second)
	if len(s) != 30 {
		t.Fatalf("attempts: want=30 got=%d", len(s))
	}
	if s[0] > 15*time.Second {
		t.Fatalf("first delay: got=%s", s[0])
	}
	if s[1] != 1500*time.Millisecond || s[2] != 2250*time.Millisecond || s[3] != 3*time.Second {
		t.Fatalf("growth: got=%v", s[:4])
	}
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			t.Fatalf("schedule decreased at %d: %s < %s", i, s[i], s[i-1])
		}
		if s[i] > o.MaxInterval {
			t.Fatalf("schedule exceeded cap at %d: %s", i, s[i])
		}
	}

	zero := o.Schedule(0)
	if zero[0] != 0 || zero[1] != 100*time.Millisecond {
		t.Fatalf("zero estimate: got=%v", zero[:2])
	}
}

func TestPollOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("completes", func(t *testing.T) {
		p, slept := newFakePoller(DefaultOptions())
		statuses := []string{"queued", "processing", "completed"}
		var n int
		snap, err := p.Poll(context.Background(), 15*time.Second, func(ctx context.Context) (Snapshot, error) {
			s := statuses[n]
			n++
			return Snapshot{ID: "r1", Status: s}, nil
		})
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if snap.Status != "completed" || n != 3 {
			t.Fatalf("snapshot: got=%+v fetches=%d", snap, n)
		}
		if len(*slept) != 3 || (*slept)[0] != time.Second {
			t.Fatalf("sleeps: got=%v", *slept)
		}
	})

	t.Run("remote error", func(t *testing.T) {
		p, _ := newFakePoller(DefaultOptions())
		_, err := p.Poll(context.Background(), time.Second, func(ctx context.Context) (Snapshot, error) {
			return Snapshot{ID: "r1", Status: "error", Error: "Image generation failed"}, nil
		})
		var remote *RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("Poll: want *RemoteError got=%v", err)
		}
		if remote.Message != "Image generation failed" {
			t.Fatalf("message: got=%q", remote.Message)
		}
		if errors.Is(err, ErrPollTimeout) {
			t.Fatalf("remote error must not be a timeout")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxAttempts = 4
		p, slept := newFakePoller(opts)
		snap, err := p.Poll(context.Background(), time.Second, func(ctx context.Context) (Snapshot, error) {
			return Snapshot{ID: "r1", Status: "processing"}, nil
		})
		if !errors.Is(err, ErrPollTimeout) {
			t.Fatalf("Poll: want ErrPollTimeout got=%v", err)
		}
		if snap.Status != "processing" || len(*slept) != 4 {
			t.Fatalf("timeout: snap=%+v sleeps=%d", snap, len(*slept))
		}
	})

	t.Run("not found within grace", func(t *testing.T) {
		p, _ := newFakePoller(DefaultOptions())
		var n int
		snap, err := p.Poll(context.Background(), time.Second, func(ctx context.Context) (Snapshot, error) {
			n++
			if n <= 3 {
				return Snapshot{}, &client.APIError{StatusCode: http.StatusNotFound, Code: "REQUEST_NOT_FOUND"}
			}
			return Snapshot{ID: "r1", Status: "completed"}, nil
		})
		if err != nil || snap.Status != "completed" {
			t.Fatalf("Poll: snap=%+v err=%v", snap, err)
		}
	})

	t.Run("not found after grace", func(t *testing.T) {
		var attempts []Attempt
		opts := DefaultOptions()
		opts.OnAttempt = func(a Attempt) { attempts = append(attempts, a) }
		p, _ := newFakePoller(opts)
		_, err := p.Poll(context.Background(), time.Second, func(ctx context.Context) (Snapshot, error) {
			return Snapshot{}, &client.APIError{StatusCode: http.StatusNotFound}
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Poll: want ErrNotFound got=%v", err)
		}
		if len(attempts) != 4 || !attempts[3].NotFound {
			t.Fatalf("attempts: got=%+v", attempts)
		}
	})

	t.Run("other errors stop", func(t *testing.T) {
		p, _ := newFakePoller(DefaultOptions())
		boom := &client.APIError{StatusCode: http.StatusInternalServerError}
		_, err := p.Poll(context.Background(), time.Second, func(ctx context.Context) (Snapshot, error) {
			return Snapshot{}, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Poll: want passthrough got=%v", err)
		}
	})

	t.Run("context cancel", func(t *testing.T) {
		p, _ := newFakePoller(DefaultOptions())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Poll(ctx, time.Second, func(ctx context.Context) (Snapshot, error) {
			t.Fatalf("fetch after cancel")
			return Snapshot{}, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Poll: want context.Canceled got=%v", err)
		}
	})
}

func TestWaitImage(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/images/status/req-1" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			_, _ = w.Write([]byte(`{"requestId":"req-1","status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"requestId":"req-1","status":"completed","imageId":"req-1","imageUrl":"/uploads/images/req-1.png"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, "device-1")
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	opts := DefaultOptions()
	opts.InitialDelay = time.Millisecond
	opts.MinInterval = time.Millisecond
	opts.MaxInterval = 5 * time.Millisecond
	st, err := New(opts).WaitImage(context.Background(), c, &client.GenerateAccepted{RequestID: "req-1", EstimatedTime: 15})
	if err != nil {
		t.Fatalf("WaitImage: %v", err)
	}
	if st.ImageURL == nil || *st.ImageURL != "/uploads/images/req-1.png" {
		t.Fatalf("image url: got=%v", st.ImageURL)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls: want=3 got=%d", got)
	}
}
