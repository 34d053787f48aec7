package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/mumble-backend/internal/realtime"
)

// memoryBus fans events out to in-process forwarders. Used when Redis is not configured.
type memoryBus struct {
	mu     sync.RWMutex
	subs   map[int]func(realtime.JobEvent)
	nextID int
}

func NewMemoryBus() Bus {
	return &memoryBus{subs: map[int]func(realtime.JobEvent){}}
}

func (b *memoryBus) Publish(ctx context.Context, ev realtime.JobEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(ev realtime.JobEvent)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	b.subs = map[int]func(realtime.JobEvent){}
	b.mu.Unlock()
	return nil
}
