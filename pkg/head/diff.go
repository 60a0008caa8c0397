package head

import (
	"fmt"
	"log/slog"
	"sync"
)

// PatchOp is the kind of change applied to the live head.
type PatchOp int

const (
	// PatchReplace replaces the tag at Index.
	PatchReplace PatchOp = iota
	// PatchAppend appends Tag.
	PatchAppend
	// PatchRemove removes the tag at Index.
	PatchRemove
)

func (op PatchOp) String() string {
	switch op {
	case PatchReplace:
		return "replace"
	case PatchAppend:
		return "append"
	case PatchRemove:
		return "remove"
	default:
		return fmt.Sprintf("PatchOp(%d)", int(op))
	}
}

// Patch is one change to the live head.
type Patch struct {
	Op    PatchOp
	Index int
	Tag   Tag
}

// Diff returns the patches that turn prev into next when applied in order.
// Removals run from the highest index down.
func Diff(prev, next []Tag) []Patch {
	var patches []Patch
	common := min(len(prev), len(next))

	for i := 0; i < common; i++ {
		if prev[i] != next[i] {
			patches = append(patches, Patch{Op: PatchReplace, Index: i, Tag: next[i]})
		}
	}
	for i := common; i < len(next); i++ {
		patches = append(patches, Patch{Op: PatchAppend, Index: i, Tag: next[i]})
	}
	for i := len(prev) - 1; i >= common; i-- {
		patches = append(patches, Patch{Op: PatchRemove, Index: i})
	}
	return patches
}

// Apply applies patches to tags and returns the result.
func Apply(tags []Tag, patches []Patch) ([]Tag, error) {
	out := append([]Tag(nil), tags...)
	for _, p := range patches {
		switch p.Op {
		case PatchReplace:
			if p.Index < 0 || p.Index >= len(out) {
				return nil, fmt.Errorf("head: replace index %d out of range [0,%d)", p.Index, len(out))
			}
			out[p.Index] = p.Tag
		case PatchAppend:
			out = append(out, p.Tag)
		case PatchRemove:
			if p.Index < 0 || p.Index >= len(out) {
				return nil, fmt.Errorf("head: remove index %d out of range [0,%d)", p.Index, len(out))
			}
			out = append(out[:p.Index], out[p.Index+1:]...)
		default:
			return nil, fmt.Errorf("head: unknown patch op %v", p.Op)
		}
	}
	return out, nil
}

// DocumentHead is the live document head a Synchronizer writes to.
type DocumentHead interface {
	Apply(patches []Patch) error
}

// MemoryDocument is a DocumentHead held in memory.
type MemoryDocument struct {
	mu   sync.Mutex
	tags []Tag
}

// NewMemoryDocument creates a document whose head holds tags.
func NewMemoryDocument(tags []Tag) *MemoryDocument {
	return &MemoryDocument{tags: append([]Tag(nil), tags...)}
}

// Apply implements DocumentHead.
func (d *MemoryDocument) Apply(patches []Patch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := Apply(d.tags, patches)
	if err != nil {
		return err
	}
	d.tags = out
	return nil
}

// Tags returns the current head tags.
func (d *MemoryDocument) Tags() []Tag {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Tag(nil), d.tags...)
}

// HTML renders the current head.
func (d *MemoryDocument) HTML() string {
	return Render(d.Tags())
}

// Synchronizer re-derives the merged head whenever page contributions
// change and pushes the difference into a DocumentHead.
type Synchronizer struct {
	head    *Head
	manager *Manager
	doc     DocumentHead
	logger  *slog.Logger

	mu      sync.Mutex
	current []Tag
	stop    func()
}

// NewSynchronizer creates a synchronizer. It does nothing until Start.
func NewSynchronizer(h *Head, m *Manager, doc DocumentHead, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{head: h, manager: m, doc: doc, logger: logger}
}

// Start begins syncing from current, the tags already in the document, and
// immediately reconciles the document with the current contributions.
func (s *Synchronizer) Start(current []Tag) {
	s.mu.Lock()
	s.current = append([]Tag(nil), current...)
	if s.stop != nil {
		s.stop()
	}
	s.stop = s.manager.OnChange(func([]Tag) { s.Sync() })
	s.mu.Unlock()
	s.Sync()
}

// Stop stops listening for changes.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// Sync reconciles the document with the merged head now.
func (s *Synchronizer) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.head.Tags(s.manager)
	patches := Diff(s.current, next)
	if len(patches) == 0 {
		return
	}
	if err := s.doc.Apply(patches); err != nil {
		s.logger.Warn("head sync failed", "error", err, "patches", len(patches))
		return
	}
	s.current = next
	s.logger.Debug("head synced", "patches", len(patches), "tags", len(next))
}

// Current returns the tags last written to the document.
func (s *Synchronizer) Current() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tag(nil), s.current...)
}
