package orchestrator

import (
	"context"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// Task is the pending outcome of an auxiliary call. Like Handle it resolves
// once, on the UI zone.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed when the task resolves.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Result returns the outcome. It must only be called after Done is closed.
func (t *Task[T]) Result() (T, error) { return t.value, t.err }

// Wait blocks until the task resolves or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// runTask runs fn on a worker goroutine and resolves the task on the UI
// zone after calling then, if set.
func runTask[T any](o *Orchestrator, ctx context.Context, fn func(context.Context) (T, error), then func(T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	o.workers.Add(1)
	go func() {
		defer o.workers.Done()
		value, err := fn(ctx)
		o.ui.Dispatch(func() {
			if then != nil {
				then(value, err)
			}
			t.value, t.err = value, err
			close(t.done)
		})
	}()
	return t
}

func (o *Orchestrator) requireClient() error {
	if o.client != nil {
		return nil
	}
	return errors.Newf("no backend client configured").
		Component("orchestrator").
		Category(errors.CategoryConfiguration).
		Build()
}

func failedTask[T any](err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

// Login signs in on a worker. On success the credentials are kept for
// later submissions.
func (o *Orchestrator) Login(ctx context.Context, creds vitalarbor.Credentials) *Task[*vitalarbor.LoginResult] {
	if err := o.requireClient(); err != nil {
		return failedTask[*vitalarbor.LoginResult](err)
	}
	if err := creds.Validate(); err != nil {
		return failedTask[*vitalarbor.LoginResult](err)
	}
	return runTask(o, ctx, func(ctx context.Context) (*vitalarbor.LoginResult, error) {
		return o.client.Login(ctx, creds)
	}, func(_ *vitalarbor.LoginResult, err error) {
		if err == nil {
			o.SetCredentials(creds)
		}
	})
}

// EnterGuest switches to guest mode. Authenticated calls are then refused
// locally.
func (o *Orchestrator) EnterGuest() {
	o.SetCredentials(vitalarbor.Guest())
}

// Logout forgets the credentials.
func (o *Orchestrator) Logout() {
	o.SetCredentials(vitalarbor.Credentials{})
}

// Signup registers a user on a worker.
func (o *Orchestrator) Signup(ctx context.Context, creds vitalarbor.Credentials) *Task[struct{}] {
	if err := o.requireClient(); err != nil {
		return failedTask[struct{}](err)
	}
	if err := creds.ValidateForSignup(); err != nil {
		return failedTask[struct{}](err)
	}
	return runTask(o, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.client.Signup(ctx, creds)
	}, nil)
}

// ListImages fetches the signed-in user's images on a worker.
func (o *Orchestrator) ListImages(ctx context.Context) *Task[*vitalarbor.ImageList] {
	if err := o.requireClient(); err != nil {
		return failedTask[*vitalarbor.ImageList](err)
	}
	creds := o.Credentials()
	if err := creds.Validate(); err != nil {
		return failedTask[*vitalarbor.ImageList](err)
	}
	return runTask(o, ctx, func(ctx context.Context) (*vitalarbor.ImageList, error) {
		return o.client.ListImages(ctx, creds)
	}, nil)
}

// UploadImage uploads one file for the signed-in user on a worker.
func (o *Orchestrator) UploadImage(ctx context.Context, path string) *Task[*vitalarbor.UploadResult] {
	if err := o.requireClient(); err != nil {
		return failedTask[*vitalarbor.UploadResult](err)
	}
	creds := o.Credentials()
	if err := creds.Validate(); err != nil {
		return failedTask[*vitalarbor.UploadResult](err)
	}
	return runTask(o, ctx, func(ctx context.Context) (*vitalarbor.UploadResult, error) {
		return o.client.UploadImage(ctx, creds, path)
	}, nil)
}
