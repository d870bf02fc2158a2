package client

import (
	"context"
	"sync"
)

// refreshCall is one in-flight refresh shared by every caller that joins it.
type refreshCall struct {
	done chan struct{}
	pair *TokenPair
	err  error
}

// refreshFlight collapses concurrent refresh attempts into a single upstream
// call. Callers that arrive while a refresh is running wait for it and share
// the result instead of spending another rotation.
type refreshFlight struct {
	mu      sync.Mutex
	current *refreshCall
}

func (f *refreshFlight) do(ctx context.Context, fn func(ctx context.Context) (*TokenPair, error)) (*TokenPair, error) {
	f.mu.Lock()
	if call := f.current; call != nil {
		f.mu.Unlock()
		select {
		case <-call.done:
			return call.pair, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	f.current = call
	f.mu.Unlock()

	// The leader runs detached from its own context so that a cancelled
	// leader does not fail the followers waiting on the call.
	go func() {
		call.pair, call.err = fn(context.Background())
		f.mu.Lock()
		f.current = nil
		f.mu.Unlock()
		close(call.done)
	}()

	select {
	case <-call.done:
		return call.pair, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
