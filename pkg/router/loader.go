package router

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Loader loads a route's module.
type Loader interface {
	Load(ctx context.Context, route *Route) (Module, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, route *Route) (Module, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, route *Route) (Module, error) {
	return f(ctx, route)
}

// Modules is a Loader backed by modules compiled into the binary, keyed by
// route id.
type Modules map[string]Module

// Load implements Loader.
func (m Modules) Load(_ context.Context, route *Route) (Module, error) {
	mod, ok := m[route.ID]
	if !ok {
		return Module{}, fmt.Errorf("router: no module for route %q", route.ID)
	}
	return mod, nil
}

// ModuleCache loads route modules at most once per route. Concurrent
// loads for the same route share a single call to the underlying Loader.
type ModuleCache struct {
	loader Loader
	group  singleflight.Group
	logger *slog.Logger
}

// NewModuleCache wraps loader.
func NewModuleCache(loader Loader, logger *slog.Logger) *ModuleCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModuleCache{loader: loader, logger: logger}
}

// Load populates route's module if it is not loaded yet. A failed load
// leaves the route unpopulated so a later call retries.
func (c *ModuleCache) Load(ctx context.Context, route *Route) error {
	if route.Loaded() {
		return nil
	}

	_, err, shared := c.group.Do(route.ID, func() (any, error) {
		if route.Loaded() {
			return nil, nil
		}
		mod, err := c.loader.Load(ctx, route)
		if err != nil {
			return nil, err
		}
		if mod.Page == nil {
			return nil, fmt.Errorf("router: module for route %q has no page", route.ID)
		}
		route.Populate(mod)
		c.logger.Debug("route module loaded", "route", route.ID)
		return nil, nil
	})
	if shared {
		c.logger.Debug("route module load shared", "route", route.ID)
	}
	return err
}
