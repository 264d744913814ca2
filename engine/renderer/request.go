package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-hello/engine/gpu"
)

// request is the result holder handed to an asynchronous adapter or device request.
// The callback records its outcome here and the caller blocks in await; nothing is
// shared outside the holder.
type request[T gpu.Releaser] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	abandoned bool

	status  gpu.RequestStatus
	value   T
	message string
}

func newRequest[T gpu.Releaser]() *request[T] {
	return &request[T]{done: make(chan struct{})}
}

// complete records the outcome. Only the first call counts; a handle delivered after
// the waiter gave up, or by a repeated callback, is released immediately.
func (r *request[T]) complete(status gpu.RequestStatus, value T, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed || r.abandoned {
		if any(value) != nil {
			value.Release()
		}
		return
	}
	r.completed = true
	r.status = status
	r.value = value
	r.message = message
	close(r.done)
}

// abandon marks the request as no longer awaited. It reports false if the request
// completed first, in which case the recorded outcome is still valid.
func (r *request[T]) abandon() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed {
		return false
	}
	r.abandoned = true
	return true
}

// await issues the request and blocks until its callback fires, ctx is done, or timeout
// elapses. A zero timeout waits on ctx alone.
//
// Parameters:
//   - ctx: cancels the wait
//   - timeout: the maximum wait, or zero
//   - issue: starts the request, passing r.complete as the callback
//
// Returns:
//   - T: the delivered handle, valid only with a success status
//   - gpu.RequestStatus: the reported status
//   - string: the reported message
//   - <-chan struct{}: closed once issue has returned; until then the request may still use
//     the handles it was issued against
//   - error: ctx.Err() or context.DeadlineExceeded if the wait ended first
func await[T gpu.Releaser](ctx context.Context, timeout time.Duration, issue func(r *request[T])) (T, gpu.RequestStatus, string, <-chan struct{}, error) {
	r := newRequest[T]()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Native requests may complete inside issue, so issue runs off the waiting goroutine.
	issued := make(chan struct{})
	go func() {
		defer close(issued)
		issue(r)
	}()

	select {
	case <-r.done:
	case <-ctx.Done():
		if r.abandon() {
			var zero T
			return zero, gpu.RequestStatusUnknown, "", issued, ctx.Err()
		}
	}
	return r.value, r.status, r.message, issued, nil
}
