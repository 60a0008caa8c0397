// Package firebolt wires routes, sessions and the HTTP host into an
// application.
//
//	app := firebolt.New(firebolt.Config{Name: "blog"})
//	app.Route("home", "/", router.Module{Page: pages.Home})
//	app.Lazy("post", "/posts/:id", loadPostModule)
//	app.Run(ctx)
//
// Run listens on $PORT when it is set, and enables live reload when the
// server was started by 'firebolt dev'.
package firebolt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/firebolt/internal/config"
	"github.com/vango-dev/firebolt/pkg/head"
	"github.com/vango-dev/firebolt/pkg/metrics"
	"github.com/vango-dev/firebolt/pkg/router"
	"github.com/vango-dev/firebolt/pkg/runtime"
	"github.com/vango-dev/firebolt/pkg/server"
)

// Config configures an App.
type Config struct {
	// Name is used as the metrics namespace. Defaults to "firebolt".
	Name string

	// Address is the listen address. $PORT overrides the port.
	Address string

	// Public is the static file directory (default "public").
	Public string

	// Dev enables live reload. $FIREBOLT_DEV=1 also enables it.
	Dev bool

	// Head is rendered into every document ahead of page tags.
	Head []head.Tag

	// Scripts are the client entry points.
	Scripts []string

	// MetadataMaxAge is how long page metadata stays fresh.
	MetadataMaxAge time.Duration

	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// FromProject builds an app configuration from a project config file.
func FromProject(cfg *config.Config) Config {
	return Config{
		Name:           cfg.Name,
		Address:        ":" + strconv.Itoa(cfg.Start.Port),
		Public:         cfg.PublicPath(),
		MetadataMaxAge: cfg.MetadataMaxAge(),
	}
}

// App is a firebolt application.
type App struct {
	config   Config
	routes   *router.Registry
	loaders  map[string]router.Loader
	modules  *router.ModuleCache
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	logger   *slog.Logger

	serverOnce sync.Once
	server     *server.Server
}

// New creates an app.
func New(cfg Config) *App {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Public == "" {
		cfg.Public = "public"
	}
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf(":%d", config.DefaultPort)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Address = ":" + port
	}
	if os.Getenv("FIREBOLT_DEV") == "1" {
		cfg.Dev = true
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	namespace := cfg.Name
	if namespace == "" || !prometheusName(namespace) {
		namespace = "firebolt"
	}

	a := &App{
		config:   cfg,
		routes:   router.NewRegistry(),
		loaders:  make(map[string]router.Loader),
		metrics:  metrics.New(metrics.WithNamespace(namespace), metrics.WithRegistry(cfg.Registry)),
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}
	a.modules = router.NewModuleCache(router.LoaderFunc(a.load), a.logger)
	return a
}

// Route registers a route whose module is compiled in. Routes match in
// registration order. It panics on an invalid pattern or duplicate id.
func (a *App) Route(id, pattern string, module router.Module) *App {
	return a.Lazy(id, pattern, router.Modules{id: module})
}

// Lazy registers a route whose module is loaded on first use.
func (a *App) Lazy(id, pattern string, loader router.Loader) *App {
	a.routes.MustAdd(&router.Route{ID: id, Pattern: pattern})
	a.loaders[id] = loader
	return a
}

// Routes returns the route registry.
func (a *App) Routes() *router.Registry { return a.routes }

// Metrics returns the app's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

func (a *App) load(ctx context.Context, route *router.Route) (router.Module, error) {
	loader, ok := a.loaders[route.ID]
	if !ok {
		return router.Module{}, fmt.Errorf("firebolt: no loader for route %q", route.ID)
	}
	return loader.Load(ctx, route)
}

// Session creates a server-render session for url.
func (a *App) Session(url string) *runtime.Session {
	return runtime.New(a.sessionOptions(runtime.WithSSR(url))...)
}

// ClientSession creates a client session. Pass runtime.WithPlatform to
// attach it to a history implementation.
func (a *App) ClientSession(opts ...runtime.Option) *runtime.Session {
	return runtime.New(a.sessionOptions(opts...)...)
}

func (a *App) sessionOptions(extra ...runtime.Option) []runtime.Option {
	opts := []runtime.Option{
		runtime.WithRegistry(a.routes),
		runtime.WithModules(a.modules),
		runtime.WithStaticHead(a.config.Head...),
		runtime.WithScripts(a.config.Scripts...),
		runtime.WithLogger(a.logger),
		runtime.WithMetrics(a.metrics),
	}
	if a.config.MetadataMaxAge > 0 {
		opts = append(opts, runtime.WithMetadataMaxAge(a.config.MetadataMaxAge))
	}
	return append(opts, extra...)
}

// Server returns the HTTP host, creating it on first use.
func (a *App) Server() *server.Server {
	a.serverOnce.Do(func() {
		a.server = server.New(a.Session, server.Config{
			Address:  a.config.Address,
			Public:   a.config.Public,
			Dev:      a.config.Dev,
			Logger:   a.logger,
			Metrics:  a.metrics,
			Gatherer: a.registry,
		})
	})
	return a.server
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Server().Handler().ServeHTTP(w, r)
}

// Run serves the app until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Server().ListenAndServe(ctx)
}

// prometheusName reports whether s is a valid metric name component.
func prometheusName(s string) bool {
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
