package orchestrator

import (
	"context"
	"sync"
)

// Dispatcher runs functions on the UI zone. Dispatch must not block.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatchFunc) Dispatch(fn func()) { f(fn) }

// Inline runs dispatched functions immediately on the caller's goroutine.
var Inline = DispatchFunc(func(fn func()) { fn() })

// EventLoop is a single-goroutine UI zone. Dispatch queues work from any
// goroutine; Run executes it in order on the goroutine that calls Run.
type EventLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// NewEventLoop returns an empty loop.
func NewEventLoop() *EventLoop {
	return &EventLoop{wake: make(chan struct{}, 1)}
}

// Dispatch queues fn. Functions dispatched after Close are dropped.
func (l *EventLoop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued functions until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, nil)
}

// RunUntil executes queued functions until done is closed or ctx is done.
// Work queued before done closes is still run.
func (l *EventLoop) RunUntil(ctx context.Context, done <-chan struct{}) error {
	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			l.drain()
			return nil
		case <-l.wake:
		}
	}
}

// Close stops accepting work and discards anything still queued.
func (l *EventLoop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.queue = nil
}

func (l *EventLoop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}
