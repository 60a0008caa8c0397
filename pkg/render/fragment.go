package render

import (
	"html"
	"strings"

	"github.com/vango-dev/firebolt/pkg/resource"
)

// Fragment is rendered output. The zero Fragment is empty markup.
type Fragment struct {
	html  string
	ready <-chan struct{}
	err   error
}

// HTML returns a fragment of trusted markup.
func HTML(markup string) Fragment {
	return Fragment{html: markup}
}

// Text returns a fragment of escaped text.
func Text(s string) Fragment {
	return Fragment{html: html.EscapeString(s)}
}

// Pending returns a suspended fragment. ready closes when it is worth
// rendering again.
func Pending(ready <-chan struct{}) Fragment {
	if ready == nil {
		ch := make(chan struct{})
		close(ch)
		ready = ch
	}
	return Fragment{ready: ready}
}

// Failed returns a fragment that propagates err to the nearest boundary.
func Failed(err error) Fragment {
	return Fragment{err: err}
}

// FromResult renders a resource result: pending and failed results become
// pending and failed fragments; successful ones go through fn.
func FromResult[T any](r resource.Result[T], fn func(T) Fragment) Fragment {
	switch r.Status {
	case resource.StatusPending:
		return Pending(r.Ready())
	case resource.StatusError:
		return Failed(r.Err)
	default:
		return fn(r.Value)
	}
}

// Concat joins fragments. The first failure wins over any suspension, and
// any suspension wins over markup.
func Concat(frags ...Fragment) Fragment {
	var b strings.Builder
	var pending *Fragment
	for i := range frags {
		f := frags[i]
		if f.err != nil {
			return f
		}
		if f.ready != nil {
			if pending == nil {
				pending = &frags[i]
			}
			continue
		}
		b.WriteString(f.html)
	}
	if pending != nil {
		return *pending
	}
	return HTML(b.String())
}

// HTML returns the markup, empty unless the fragment is settled.
func (f Fragment) HTML() string {
	return f.html
}

// IsPending reports whether the fragment is suspended.
func (f Fragment) IsPending() bool {
	return f.ready != nil
}

// Ready returns the suspended fragment's ready channel, or nil.
func (f Fragment) Ready() <-chan struct{} {
	return f.ready
}

// Err returns the failure, if any.
func (f Fragment) Err() error {
	return f.err
}
