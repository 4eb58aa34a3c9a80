package orchestrator

import (
	"context"
	"sync"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
)

// Handle is the pending outcome of one submission. It resolves exactly once,
// on the UI zone, with either a result or an error.
type Handle struct {
	id   string
	done chan struct{}
	once sync.Once

	result diagnosis.Result
	err    error
}

func newHandle(id string) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// ID is the submission's trace id.
func (h *Handle) ID() string { return h.id }

// Done is closed when the handle resolves.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the outcome. It must only be called after Done is closed.
func (h *Handle) Result() (diagnosis.Result, error) {
	return h.result, h.err
}

// Wait blocks until the handle resolves or ctx is done. Do not call it on
// an EventLoop goroutine; the resolution is dispatched there.
func (h *Handle) Wait(ctx context.Context) (diagnosis.Result, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return diagnosis.Result{}, ctx.Err()
	}
}

func (h *Handle) resolve(result diagnosis.Result, err error) bool {
	resolved := false
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
		resolved = true
	})
	return resolved
}
