// Package poller waits for an asynchronous mumble record to reach a terminal
// status by polling its status endpoint with capped exponential backoff.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/mumble-backend/pkg/client"
)

var (
	// ErrPollTimeout means every attempt was spent without a terminal status.
	ErrPollTimeout = errors.New("timed out waiting for terminal status")
	// ErrNotFound means the record was still missing after the grace window.
	ErrNotFound = errors.New("record not found")
)

// RemoteError is a record that reached the error status on the server.
type RemoteError struct {
	ID      string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("record %s failed", e.ID)
	}
	return fmt.Sprintf("record %s failed: %s", e.ID, e.Message)
}

type Options struct {
	// InitialDelay, when set, replaces the estimate-derived first delay.
	InitialDelay    time.Duration
	MaxInitialDelay time.Duration
	// EstimateFactor scales the server estimate into the first delay.
	EstimateFactor float64
	Multiplier     float64
	// MinInterval floors every delay after the first.
	MinInterval time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	// NotFoundGrace is how many leading attempts may see a 404.
	NotFoundGrace int
	// OnAttempt is called after every fetch.
	OnAttempt func(Attempt)
}

func DefaultOptions() Options {
	return Options{
		MaxInitialDelay: time.Second,
		EstimateFactor:  0.1,
		Multiplier:      1.5,
		MinInterval:     100 * time.Millisecond,
		MaxInterval:     3 * time.Second,
		MaxAttempts:     30,
		NotFoundGrace:   3,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxInitialDelay <= 0 {
		o.MaxInitialDelay = d.MaxInitialDelay
	}
	if o.EstimateFactor <= 0 {
		o.EstimateFactor = d.EstimateFactor
	}
	if o.Multiplier < 1 {
		o.Multiplier = d.Multiplier
	}
	if o.MinInterval <= 0 {
		o.MinInterval = d.MinInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = d.MaxInterval
	}
	if o.MinInterval > o.MaxInterval {
		o.MinInterval = o.MaxInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.NotFoundGrace < 0 {
		o.NotFoundGrace = 0
	}
	return o
}

// FirstDelay is min(MaxInitialDelay, estimate*EstimateFactor) unless
// InitialDelay is set.
func (o Options) FirstDelay(estimate time.Duration) time.Duration {
	o = o.normalized()
	if o.InitialDelay > 0 {
		return o.InitialDelay
	}
	d := time.Duration(float64(estimate) * o.EstimateFactor)
	if d > o.MaxInitialDelay {
		d = o.MaxInitialDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Schedule lists the delay before each attempt.
func (o Options) Schedule(estimate time.Duration) []time.Duration {
	o = o.normalized()
	out := make([]time.Duration, 0, o.MaxAttempts)
	d := o.FirstDelay(estimate)
	for i := 0; i < o.MaxAttempts; i++ {
		out = append(out, d)
		d = o.next(d)
	}
	return out
}

func (o Options) next(d time.Duration) time.Duration {
	n := time.Duration(float64(d) * o.Multiplier)
	if n < o.MinInterval {
		n = o.MinInterval
	}
	if n > o.MaxInterval {
		n = o.MaxInterval
	}
	if n < d {
		n = d
	}
	return n
}

// Snapshot is what one fetch reports.
type Snapshot struct {
	ID     string
	Status string
	Error  string
}

type Attempt struct {
	N        int
	Delay    time.Duration
	Status   string
	NotFound bool
}

type FetchFunc func(ctx context.Context) (Snapshot, error)

type Poller struct {
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Poller {
	return &Poller{opts: opts.normalized(), sleep: sleepCtx}
}

// Poll fetches until the status is terminal. A completed snapshot is returned
// with a nil error; an error snapshot yields *RemoteError.
func (p *Poller) Poll(ctx context.Context, estimate time.Duration, fetch FetchFunc) (Snapshot, error) {
	delay := p.opts.FirstDelay(estimate)
	var last Snapshot
	for i := 1; i <= p.opts.MaxAttempts; i++ {
		if err := p.sleep(ctx, delay); err != nil {
			return last, err
		}
		snap, err := fetch(ctx)
		switch {
		case err == nil:
			last = snap
			p.observe(Attempt{N: i, Delay: delay, Status: snap.Status})
			switch snap.Status {
			case client.StatusCompleted:
				return snap, nil
			case client.StatusError:
				return snap, &RemoteError{ID: snap.ID, Message: snap.Error}
			}
		case client.IsNotFound(err):
			p.observe(Attempt{N: i, Delay: delay, NotFound: true})
			if i > p.opts.NotFoundGrace {
				return last, fmt.Errorf("%w: %v", ErrNotFound, err)
			}
		default:
			return last, err
		}
		delay = p.opts.next(delay)
	}
	return last, ErrPollTimeout
}

func (p *Poller) observe(a Attempt) {
	if p.opts.OnAttempt != nil {
		p.opts.OnAttempt(a)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// WaitAudio polls a capture until it is transcribed or failed.
func (p *Poller) WaitAudio(ctx context.Context, c *client.Client, accepted *client.AudioAccepted) (*client.AudioStatus, error) {
	var last *client.AudioStatus
	_, err := p.Poll(ctx, seconds(accepted.EstimatedProcessingTime), func(ctx context.Context) (Snapshot, error) {
		st, err := c.AudioStatus(ctx, accepted.AudioID)
		if err != nil {
			return Snapshot{}, err
		}
		last = st
		snap := Snapshot{ID: st.AudioID, Status: st.Status}
		if st.Error != nil {
			snap.Error = *st.Error
		}
		return snap, nil
	})
	return last, err
}

// WaitImage polls an artifact request until the image exists or generation failed.
func (p *Poller) WaitImage(ctx context.Context, c *client.Client, accepted *client.GenerateAccepted) (*client.ImageStatus, error) {
	var last *client.ImageStatus
	_, err := p.Poll(ctx, seconds(accepted.EstimatedTime), func(ctx context.Context) (Snapshot, error) {
		st, err := c.ImageStatus(ctx, accepted.RequestID)
		if err != nil {
			return Snapshot{}, err
		}
		last = st
		snap := Snapshot{ID: st.RequestID, Status: st.Status}
		if st.Error != nil {
			snap.Error = *st.Error
		}
		return snap, nil
	})
	return last, err
}
