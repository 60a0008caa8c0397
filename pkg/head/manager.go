package head

import "sync"

// Manager collects head contributions from mounted pages. Contributions are
// kept in insertion order, which is render order.
type Manager struct {
	mu        sync.Mutex
	nextID    uint64
	sets      []contribution
	listeners map[uint64]func([]Tag)
}

type contribution struct {
	id   uint64
	tags []Tag
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{listeners: make(map[uint64]func([]Tag))}
}

// Insert adds a contribution and returns a function that removes it.
// Calling the returned function more than once has no further effect.
func (m *Manager) Insert(tags []Tag) (dispose func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.sets = append(m.sets, contribution{id: id, tags: append([]Tag(nil), tags...)})
	m.mu.Unlock()
	m.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			for i, c := range m.sets {
				if c.id == id {
					m.sets = append(m.sets[:i], m.sets[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
			m.notify()
		})
	}
}

// Sets returns a copy of the current contributions in insertion order.
func (m *Manager) Sets() [][]Tag {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Tag, len(m.sets))
	for i, c := range m.sets {
		out[i] = c.tags
	}
	return out
}

// Merged returns the merged contributions.
func (m *Manager) Merged() []Tag {
	return Merge(m.Sets()...)
}

// Len returns the number of live contributions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets)
}

// OnChange registers fn to be called with the merged contributions after
// every insert or removal. It returns a function that unregisters fn.
func (m *Manager) OnChange(fn func([]Tag)) (dispose func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	if len(m.listeners) == 0 {
		m.mu.Unlock()
		return
	}
	fns := make([]func([]Tag), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	merged := m.Merged()
	for _, fn := range fns {
		fn(merged)
	}
}
