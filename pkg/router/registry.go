package router

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vango-dev/firebolt/pkg/routepath"
)

// Registry errors.
var (
	ErrNoRoute        = errors.New("router: no route matches url")
	ErrDuplicateRoute = errors.New("router: duplicate route id")
)

// Registry holds routes in registration order.
type Registry struct {
	mu     sync.RWMutex
	routes []*Route
	byID   map[string]*Route
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Route)}
}

// Add registers a route after all previously registered routes.
func (r *Registry) Add(route *Route) error {
	compiled, err := Compile(route.Pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[route.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateRoute, route.ID)
	}
	route.compiled = compiled
	r.routes = append(r.routes, route)
	r.byID[route.ID] = route
	return nil
}

// MustAdd is like Add but panics on error.
func (r *Registry) MustAdd(routes ...*Route) *Registry {
	for _, route := range routes {
		if err := r.Add(route); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a route by id.
func (r *Registry) Get(id string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.byID[id]
	return route, ok
}

// Routes returns the routes in registration order.
func (r *Registry) Routes() []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Resolve returns the first route, in registration order, whose pattern
// matches url. It returns ErrNoRoute when nothing matches.
func (r *Registry) Resolve(url string) (*Route, Params, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, route := range r.routes {
		if hit, params := route.compiled.Match(url); hit {
			return route, params, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNoRoute, url)
}

// Locate resolves url and builds the Location that would be committed for it.
func (r *Registry) Locate(url string) (Location, *Route, error) {
	parts, err := routepath.Clean(url)
	if err != nil {
		return Location{}, nil, err
	}
	canonical := parts.String()

	route, params, err := r.Resolve(canonical)
	if err != nil {
		return Location{}, nil, err
	}
	return Location{URL: canonical, RouteID: route.ID, Params: params}, route, nil
}
