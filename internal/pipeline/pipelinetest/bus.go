package pipelinetest

import (
	"context"
	"sync"

	"coaching_portal_backend/internal/events"
)

// Bus records published events instead of dispatching them.
type Bus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *Bus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *Bus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *Bus) Subscribe(string, events.Handler) {}

// Events returns everything published so far.
func (b *Bus) Events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Named returns the published events with the given name.
func (b *Bus) Named(name string) []events.Event {
	out := make([]events.Event, 0)
	for _, e := range b.Events() {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
