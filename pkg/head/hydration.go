package head

import "sync/atomic"

// HydrationFlag is set exactly once, by the first client head render.
// Each session owns one.
type HydrationFlag struct {
	claimed atomic.Bool
}

// Claim sets the flag. It returns true only for the call that set it.
func (f *HydrationFlag) Claim() bool {
	return f.claimed.CompareAndSwap(false, true)
}

// Hydrated reports whether the flag has been claimed.
func (f *HydrationFlag) Hydrated() bool {
	return f.claimed.Load()
}

// Head is the document-level head. Static tags come first in precedence,
// followed by page contributions held by a Manager.
type Head struct {
	Static []Tag
}

// Tags returns the merged head for the current contributions of m.
func (h *Head) Tags(m *Manager) []Tag {
	sets := make([][]Tag, 0, m.Len()+1)
	sets = append(sets, h.Static)
	sets = append(sets, m.Sets()...)
	return Merge(sets...)
}

// RenderServer renders the head for a server pass. It must be called after
// the body has rendered so every page contribution is present.
func (h *Head) RenderServer(m *Manager) string {
	return Render(h.Tags(m))
}

// RenderClient renders the head on the client. The first call on an
// unclaimed flag returns serverHTML, the markup already in the document,
// unchanged. Later calls derive the head from m.
func (h *Head) RenderClient(flag *HydrationFlag, serverHTML string, m *Manager) string {
	if flag.Claim() {
		return serverHTML
	}
	return Render(h.Tags(m))
}
