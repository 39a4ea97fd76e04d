// Package eventing provides a minimal in-process publish/subscribe
// primitive for decoupling event producers from their listeners.
package eventing

import (
	"context"
	"sync"
)

// Handler processes one published event. A non-nil error aborts the
// emission; handlers that need fault isolation must recover internally.
type Handler[T any] func(ctx context.Context, event T) error

// Delegate invokes registered handlers sequentially, in registration
// order, awaiting each one before the next. Emit returns only after the
// full sequence has completed, so a caller that emits after committing a
// transaction knows every listener has observed the committed state.
type Delegate[T any] struct {
	mu       sync.Mutex
	handlers []*registration[T]
}

type registration[T any] struct {
	fn Handler[T]
}

// Listen registers a handler and returns a function that removes it.
// Registration during an in-flight Emit affects subsequent emissions only.
func (d *Delegate[T]) Listen(fn Handler[T]) (unlisten func()) {
	reg := &registration[T]{fn: fn}

	d.mu.Lock()
	d.handlers = append(d.handlers, reg)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		next := make([]*registration[T], 0, len(d.handlers))
		for _, h := range d.handlers {
			if h != reg {
				next = append(next, h)
			}
		}
		d.handlers = next
	}
}

// Emit publishes event to every currently registered handler. The first
// handler error stops the sequence and propagates to the caller.
func (d *Delegate[T]) Emit(ctx context.Context, event T) error {
	d.mu.Lock()
	snapshot := d.handlers
	d.mu.Unlock()

	for _, h := range snapshot {
		if err := h.fn(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
