package cli

import (
	"context"

	"github.com/vitalarbor/vitalarbor-go/internal/orchestrator"
)

// Await services loop on the calling goroutine until task completes, then
// returns its result.
func Await[T any](ctx context.Context, loop *orchestrator.EventLoop, task *orchestrator.Task[T]) (T, error) {
	if err := loop.RunUntil(ctx, task.Done()); err != nil {
		var zero T
		return zero, err
	}
	return task.Result()
}
