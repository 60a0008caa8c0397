package history

import (
	"strings"
	"sync"
)

type memoryEntry struct {
	url   string
	state any
}

// Memory is an in-memory Platform with a back/forward stack.
type Memory struct {
	mu      sync.Mutex
	entries []memoryEntry
	index   int
	notify  []Listener
}

// NewMemory creates a history whose only entry is initial.
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{entries: []memoryEntry{{url: initial}}}
}

// Location implements Platform.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index].url
}

// State returns the state of the current entry.
func (m *Memory) State() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index].state
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PushState implements Platform. Forward entries are discarded.
func (m *Memory) PushState(state any, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], memoryEntry{url: url, state: state})
	m.index++
	return nil
}

// ReplaceState implements Platform.
func (m *Memory) ReplaceState(state any, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = memoryEntry{url: url, state: state}
	return nil
}

// Notify implements Notifier.
func (m *Memory) Notify(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = append(m.notify, fn)
}

// Back moves one entry back and emits popstate. It reports false at the
// first entry.
func (m *Memory) Back() bool {
	return m.Go(-1)
}

// Forward moves one entry forward and emits popstate. It reports false at
// the last entry.
func (m *Memory) Forward() bool {
	return m.Go(1)
}

// Go moves delta entries and emits popstate.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	next := m.index + delta
	if delta == 0 || next < 0 || next >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = next
	e := m.entries[next]
	m.mu.Unlock()

	m.emit(Event{Type: EventPopState, URL: e.url, State: e.state})
	return true
}

// SetHash pushes an entry that differs only in fragment and emits
// hashchange, as following an in-page anchor does.
func (m *Memory) SetHash(hash string) {
	m.mu.Lock()
	url := m.entries[m.index].url
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	url += "#" + strings.TrimPrefix(hash, "#")
	m.entries = append(m.entries[:m.index+1], memoryEntry{url: url})
	m.index++
	m.mu.Unlock()

	m.emit(Event{Type: EventHashChange, URL: url})
}

func (m *Memory) emit(e Event) {
	m.mu.Lock()
	fns := append([]Listener(nil), m.notify...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
