package events

import (
	"context"
	"log/slog"
	"sync"
)

// Broadcaster is an EventHandler that copies every event to all live
// subscribers. A subscriber that is not keeping up loses events rather than
// slowing down the emitter.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan TaskEvent]struct{}
	logger *slog.Logger
}

var _ EventHandler = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[chan TaskEvent]struct{}),
		logger: logger.With("component", "event_broadcaster"),
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel function unsubscribes and closes the channel; it is safe to call
// more than once.
func (b *Broadcaster) Subscribe(buffer int) (<-chan TaskEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan TaskEvent, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// HandleEvent implements EventHandler. It never blocks.
func (b *Broadcaster) HandleEvent(_ context.Context, event *TaskEvent) error {
	if event == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- *event:
		default:
			b.logger.Debug("dropping event for slow subscriber",
				"event_type", event.Type,
				"task_id", event.TaskID)
		}
	}
	return nil
}
