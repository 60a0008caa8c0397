package history

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/firebolt/pkg/routepath"
)

// ErrInvalidURL is returned for navigation targets that cannot be a
// same-origin path.
var ErrInvalidURL = errors.New("history: invalid url")

// Platform is the host's history API.
type Platform interface {
	// Location returns the current URL as path, query and fragment.
	Location() string
	PushState(state any, url string) error
	ReplaceState(state any, url string) error
}

// Notifier is implemented by platforms that emit their own navigation
// events, such as back/forward.
type Notifier interface {
	Notify(fn Listener)
}

// Bridge wraps a Platform so that programmatic navigation emits events.
type Bridge struct {
	platform Platform
	logger   *slog.Logger

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener
}

// NewBridge wraps p. If p is a Notifier, its events are forwarded to the
// bridge's listeners.
func NewBridge(p Platform, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{platform: p, logger: logger, listeners: make(map[uint64]Listener)}
	if n, ok := p.(Notifier); ok {
		n.Notify(b.Emit)
	}
	return b
}

// NavigateOptions configures a navigation.
type NavigateOptions struct {
	// Replace replaces the current entry instead of pushing one.
	Replace bool

	// State is stored with the history entry.
	State any
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithState stores state with the history entry.
func WithState(state any) NavigateOption {
	return func(o *NavigateOptions) {
		o.State = state
	}
}

// Navigate pushes url, or replaces the current entry with WithReplace.
func (b *Bridge) Navigate(url string, opts ...NavigateOption) error {
	var o NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Replace {
		return b.ReplaceState(o.State, url)
	}
	return b.PushState(o.State, url)
}

// PushState calls the platform and emits one pushState event.
func (b *Bridge) PushState(state any, url string) error {
	return b.call(EventPushState, b.platform.PushState, state, url)
}

// ReplaceState calls the platform and emits one replaceState event.
func (b *Bridge) ReplaceState(state any, url string) error {
	return b.call(EventReplaceState, b.platform.ReplaceState, state, url)
}

func (b *Bridge) call(typ EventType, fn func(any, string) error, state any, url string) error {
	if _, err := routepath.Clean(url); err != nil || url == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	if err := fn(state, url); err != nil {
		return fmt.Errorf("history: %s %q: %w", typ, url, err)
	}
	b.Emit(Event{Type: typ, URL: url, State: state, Args: []any{state, url}})
	return nil
}

// OnNavigate registers fn for every event. It returns a function that
// unregisters it.
func (b *Bridge) OnNavigate(fn Listener) (dispose func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Emit delivers e to every listener.
func (b *Bridge) Emit(e Event) {
	b.mu.Lock()
	fns := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	b.logger.Debug("history event", "type", e.Type.String(), "url", e.URL)
	for _, fn := range fns {
		fn(e)
	}
}

// Location returns the platform's current URL.
func (b *Bridge) Location() string {
	return b.platform.Location()
}
