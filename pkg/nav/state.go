package nav

import (
	"fmt"
	"time"

	"github.com/vango-dev/firebolt/pkg/router"
	"go.opentelemetry.io/otel/trace"
)

// State is the controller state.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateCommitted
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Transition describes one state change. Observers receive transitions on
// the controller loop, in order.
type Transition struct {
	From State
	To   State

	// URL is the URL being resolved, committed or cancelled.
	URL string

	// Location is the committed location for StateCommitted.
	Location router.Location

	// Err is set when a resolution failed and the controller returned to
	// StateIdle without committing.
	Err error
}

// token identifies one resolution. It is only touched on the loop.
type token struct {
	id        uint64
	url       string
	started   time.Time
	cancelled bool
	span      trace.Span
}
