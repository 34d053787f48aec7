package bus

import (
	"context"

	"github.com/yungbote/mumble-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.JobEvent) error
	StartForwarder(ctx context.Context, onMsg func(ev realtime.JobEvent)) error
	Close() error
}
