package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus is a small in-process event bus. Dispatch is synchronous: Publish
// returns after every subscribed handler ran, so a view subscribed to a
// progress event sees refreshed data before the next render. Handler errors
// and panics are logged, never propagated to the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Publish an event to all handlers subscribed to its name.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := b.handlers[e.Name()]
	b.mu.RUnlock()

	for _, h := range hs {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event: handler panic",
				"event", e.Name(),
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}
	}()

	if err := h(ctx, e); err != nil {
		slog.ErrorContext(ctx, "event: handle event failed",
			"event", e.Name(),
			"error", err,
		)
	}
}
