package render

import (
	"context"
	"fmt"
)

// DefaultMaxAttempts bounds how many times Boundary.Server renders.
const DefaultMaxAttempts = 64

// Boundary is a suspense and failure boundary.
type Boundary struct {
	// Fallback is shown on the client while the subtree is suspended.
	Fallback Fragment

	// OnError renders a failed subtree. If nil, the failure propagates.
	OnError func(err error) Fragment

	// MaxAttempts bounds server renders. Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// Server renders fn to completion. Each pending result is awaited and fn
// runs again, until it settles or ctx is done.
func (b Boundary) Server(ctx context.Context, fn func() Fragment) (string, error) {
	limit := b.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}

	for attempt := 0; attempt < limit; attempt++ {
		f := fn()
		switch {
		case f.err != nil:
			if b.OnError == nil {
				return "", f.err
			}
			handled := b.OnError(f.err)
			if handled.IsPending() {
				return "", fmt.Errorf("render: error fallback suspended: %w", f.err)
			}
			if handled.err != nil {
				return "", handled.err
			}
			return handled.html, nil
		case f.ready != nil:
			select {
			case <-f.ready:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		default:
			return f.html, nil
		}
	}
	return "", fmt.Errorf("render: still suspended after %d attempts", limit)
}

// Client renders fn once. A suspended result shows Fallback, and retry is
// called once from another goroutine when the dependency is ready.
func (b Boundary) Client(fn func() Fragment, retry func()) Fragment {
	f := fn()
	switch {
	case f.err != nil:
		if b.OnError != nil {
			return b.OnError(f.err)
		}
		return f
	case f.ready != nil:
		if retry != nil {
			go func(ready <-chan struct{}) {
				<-ready
				retry()
			}(f.ready)
		}
		return b.Fallback
	default:
		return f
	}
}
