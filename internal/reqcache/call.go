package reqcache

import "context"

// Call is one logical fetch. Every reader that joins the fetch shares the
// same Call.
type Call struct {
	done    chan struct{}
	val     any
	err     error
	counted bool
}

func newCall() *Call {
	return &Call{done: make(chan struct{}), counted: true}
}

// Done is closed once the fetch has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the fetch settles or ctx is done. It returns the fetcher
// result, or ctx.Err() if ctx ended first. The fetch itself keeps running.
func (c *Call) Wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
