package router

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vango-dev/firebolt/pkg/head"
	"github.com/vango-dev/firebolt/pkg/render"
	"github.com/vango-dev/firebolt/pkg/resource"
)

// MetadataPolicy controls whether navigation waits for page metadata
// before committing a new location.
type MetadataPolicy int

const (
	// MetadataAuto waits for metadata only when the route has no Loading
	// view and the cached metadata is missing or should expire.
	MetadataAuto MetadataPolicy = iota

	// MetadataBlocking always waits when metadata is missing or should expire.
	MetadataBlocking

	// MetadataNone never waits for metadata.
	MetadataNone
)

// String returns the policy name.
func (p MetadataPolicy) String() string {
	switch p {
	case MetadataAuto:
		return "auto"
	case MetadataBlocking:
		return "blocking"
	case MetadataNone:
		return "none"
	default:
		return "unknown"
	}
}

// Page renders a route. Pages read data through props.Resources and
// contribute head tags through props.Meta.
type Page func(ctx context.Context, props *PageProps) render.Fragment

// MetadataFunc produces metadata for a location on the server.
type MetadataFunc func(ctx context.Context, loc Location) (*Metadata, error)

// Module holds the lazily loaded parts of a route.
type Module struct {
	// Page is the main view. Required.
	Page Page

	// Loading is shown while the page suspends. Optional.
	Loading Page

	// Metadata computes page metadata on the server. Optional.
	Metadata MetadataFunc
}

// Metadata is per-URL page data fetched ahead of a navigation commit.
type Metadata struct {
	// Title is the document title.
	Title string `json:"title,omitempty"`

	// Head holds additional head tags for the page.
	Head []head.Tag `json:"head,omitempty"`

	// Data is arbitrary route data.
	Data json.RawMessage `json:"data,omitempty"`

	// FetchedAt is when the metadata was produced.
	FetchedAt time.Time `json:"fetchedAt"`

	// MaxAge is how long the metadata stays fresh. Zero means forever.
	MaxAge time.Duration `json:"maxAge,omitempty"`
}

// ShouldExpire reports whether the metadata is stale at now.
func (m *Metadata) ShouldExpire(now time.Time) bool {
	if m == nil {
		return true
	}
	if m.MaxAge <= 0 {
		return false
	}
	return now.Sub(m.FetchedAt) >= m.MaxAge
}

// Route describes a registered route. ID, Pattern and MetadataPolicy are
// fixed at registration; the module is populated once by a loader.
type Route struct {
	ID             string
	Pattern        string
	MetadataPolicy MetadataPolicy

	compiled *Pattern

	mu     sync.RWMutex
	module *Module
}

// NewRoute creates a route with an already available module.
func NewRoute(id, pattern string, module *Module) *Route {
	return &Route{ID: id, Pattern: pattern, module: module}
}

// Loaded reports whether the route's module has been populated.
func (r *Route) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.module != nil
}

// Page returns the page view, or nil before the module loads.
func (r *Route) Page() Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.module == nil {
		return nil
	}
	return r.module.Page
}

// Loading returns the loading view, or nil if absent or not yet loaded.
func (r *Route) Loading() Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.module == nil {
		return nil
	}
	return r.module.Loading
}

// Metadata returns the server metadata function, if any.
func (r *Route) Metadata() MetadataFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.module == nil {
		return nil
	}
	return r.module.Metadata
}

// Populate sets the route module. Only the first call has an effect; it
// reports whether this call populated the route.
func (r *Route) Populate(m Module) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.module != nil {
		return false
	}
	r.module = &m
	return true
}

// Location is the committed navigation target seen by the rendering tree.
type Location struct {
	URL     string
	RouteID string
	Params  Params
}

// Param returns a route parameter.
func (l Location) Param(name string) string {
	return l.Params[name]
}

// PageProps is passed to a Page while rendering.
type PageProps struct {
	// Location is the location being rendered.
	Location Location

	// Resources is the session's resource cache.
	Resources *resource.Cache

	// Metadata is the page metadata, if known.
	Metadata *Metadata

	meta func([]head.Tag)
}

// NewPageProps creates page props. meta receives head contributions made
// through Meta; it may be nil.
func NewPageProps(loc Location, resources *resource.Cache, md *Metadata, meta func([]head.Tag)) *PageProps {
	return &PageProps{Location: loc, Resources: resources, Metadata: md, meta: meta}
}

// Param returns a route parameter of the rendered location.
func (p *PageProps) Param(name string) string {
	return p.Location.Param(name)
}

// Meta contributes head tags for this page.
func (p *PageProps) Meta(tags ...head.Tag) {
	if p.meta != nil && len(tags) > 0 {
		p.meta(tags)
	}
}
