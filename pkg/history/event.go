package history

import "fmt"

// EventType identifies what caused a navigation event.
type EventType int

const (
	EventPopState EventType = iota
	EventPushState
	EventReplaceState
	EventHashChange
)

// String returns the browser event name.
func (t EventType) String() string {
	switch t {
	case EventPopState:
		return "popstate"
	case EventPushState:
		return "pushState"
	case EventReplaceState:
		return "replaceState"
	case EventHashChange:
		return "hashchange"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is one navigation. Args holds the arguments of the programmatic
// call that produced it, in call order; it is nil for platform events.
type Event struct {
	Type  EventType
	URL   string
	State any
	Args  []any
}

// Listener receives navigation events.
type Listener func(Event)
