package compare

import "context"

// Call is an in-flight comparison request that can be aborted.
type Call struct {
	cancel context.CancelFunc
	done   chan struct{}
	res    Result
	err    error
}

// Start issues the request on its own goroutine. ctx bounds the request.
func Start(ctx context.Context, c Comparer, prompt string) *Call {
	ctx, cancel := context.WithCancel(ctx)
	call := &Call{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(call.done)
		defer cancel()
		call.res, call.err = c.Compare(ctx, prompt)
	}()
	return call
}

// Cancel aborts the request. It is safe to call more than once and after
// completion.
func (c *Call) Cancel() { c.cancel() }

// Done is closed once the request has finished.
func (c *Call) Done() <-chan struct{} { return c.done }

// Wait blocks until the request finishes or ctx is done. Cancelling ctx
// does not cancel the request itself.
func (c *Call) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.res, c.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
