package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/head"
	"github.com/vango-dev/firebolt/pkg/history"
	"github.com/vango-dev/firebolt/pkg/metrics"
	"github.com/vango-dev/firebolt/pkg/routepath"
	"github.com/vango-dev/firebolt/pkg/router"
	"github.com/vango-dev/firebolt/pkg/resource"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/vango-dev/firebolt/pkg/runtime"

// DefaultMetadataMaxAge applies to fetched metadata that sets no MaxAge.
const DefaultMetadataMaxAge = 30 * time.Second

// metadataKeyName prefixes the resource keys that carry embedded metadata.
const metadataKeyName = "firebolt:metadata"

// MetadataKey is the resource key under which metadata for url is embedded.
func MetadataKey(url string) string {
	return resource.Key(metadataKeyName, url)
}

// SSR is the server variant of a session: the URL being rendered and the
// sink for markup inserted after the body.
type SSR struct {
	URL string

	mu      sync.Mutex
	inserts bytes.Buffer
}

// Write appends to the inserts. It is safe for concurrent use.
func (s *SSR) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts.Write(p)
}

// Inserts returns everything written so far.
func (s *SSR) Inserts() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts.String()
}

// Option configures a Session.
type Option func(*Session)

// WithRegistry sets the route registry. Sessions sharing routes should
// share one registry.
func WithRegistry(reg *router.Registry) Option {
	return func(s *Session) {
		s.registry = reg
	}
}

// WithModules sets the module cache shared across sessions.
func WithModules(modules *router.ModuleCache) Option {
	return func(s *Session) {
		s.modules = modules
	}
}

// WithStaticHead sets the document-level head tags.
func WithStaticHead(tags ...head.Tag) Option {
	return func(s *Session) {
		s.head.Static = append(s.head.Static, tags...)
	}
}

// WithScripts sets the client entry scripts written into documents.
func WithScripts(scripts ...string) Option {
	return func(s *Session) {
		s.scripts = scripts
	}
}

// WithPlatform sets the history platform. Defaults to an in-memory history.
func WithPlatform(p history.Platform) Option {
	return func(s *Session) {
		s.platform = p
	}
}

// WithSSR makes this a server session rendering url.
func WithSSR(url string) Option {
	return func(s *Session) {
		s.ssr = &SSR{URL: url}
	}
}

// WithMetadataFetcher sets where metadata comes from. Defaults to
// ModuleMetadata; clients talking to a remote server use HTTPMetadata.
func WithMetadataFetcher(f MetadataFetcher) Option {
	return func(s *Session) {
		s.fetcher = f
	}
}

// WithMetadataMaxAge sets the default freshness of fetched metadata.
func WithMetadataMaxAge(d time.Duration) Option {
	return func(s *Session) {
		s.maxAge = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics records module loads and resource computations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		s.tracer = tracer
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the runtime handle shared by one render context.
type Session struct {
	id       string
	registry *router.Registry
	modules  *router.ModuleCache

	resources   *resource.Cache
	head        *head.Head
	headManager *head.Manager
	hydration   *head.HydrationFlag
	scripts     []string

	platform   history.Platform
	bridge     *history.Bridge
	bridgeOnce sync.Once

	meta      *metadataStore
	metaGroup singleflight.Group
	fetcher   MetadataFetcher
	maxAge    time.Duration

	ssr *SSR

	mountMu sync.Mutex
	unmount func()

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates a session.
func New(opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		head:        &head.Head{},
		headManager: head.NewManager(),
		hydration:   &head.HydrationFlag{},
		meta:        newMetadataStore(),
		maxAge:      DefaultMetadataMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("session", s.id)
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.registry == nil {
		s.registry = router.NewRegistry()
	}
	if s.modules == nil {
		s.modules = router.NewModuleCache(router.Modules{}, s.logger)
	}
	if s.fetcher == nil {
		s.fetcher = ModuleMetadata
	}

	cacheOpts := []resource.Option{
		resource.WithLogger(s.logger),
		resource.WithMetrics(s.metrics),
		resource.WithTracer(s.tracer),
	}
	if s.ssr != nil {
		cacheOpts = append(cacheOpts, resource.WithEmbed(s.ssr))
	}
	s.resources = resource.New(cacheOpts...)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Registry returns the route registry.
func (s *Session) Registry() *router.Registry { return s.registry }

// Resources returns the resource cache.
func (s *Session) Resources() *resource.Cache { return s.resources }

// Head returns the document-level head.
func (s *Session) Head() *head.Head { return s.head }

// HeadManager returns the page head contributions.
func (s *Session) HeadManager() *head.Manager { return s.headManager }

// Hydration returns the session's one-shot hydration flag.
func (s *Session) Hydration() *head.HydrationFlag { return s.hydration }

// SSR returns the server variant, or nil on the client.
func (s *Session) SSR() *SSR { return s.ssr }

// IsSSR reports whether this is a server session.
func (s *Session) IsSSR() bool { return s.ssr != nil }

// History returns the session's history bridge, created on first use.
func (s *Session) History() *history.Bridge {
	s.bridgeOnce.Do(func() {
		p := s.platform
		if p == nil {
			initial := "/"
			if s.ssr != nil {
				initial = s.ssr.URL
			}
			p = history.NewMemory(initial)
		}
		s.bridge = history.NewBridge(p, s.logger)
	})
	return s.bridge
}

// ResolveRoute returns the first route matching url and its location.
func (s *Session) ResolveRoute(url string) (router.Location, *router.Route, error) {
	loc, route, err := s.registry.Locate(url)
	if err != nil {
		return router.Location{}, nil, ferrors.New("E001").WithField("url", url).Wrap(err)
	}
	return loc, route, nil
}

// LoadRoute populates the route's module.
func (s *Session) LoadRoute(ctx context.Context, route *router.Route) error {
	if route.Loaded() {
		return nil
	}
	err := s.modules.Load(ctx, route)
	s.metrics.RecordModuleLoad(err)
	return err
}

// LoadRouteByURL resolves url and loads its route's module.
func (s *Session) LoadRouteByURL(ctx context.Context, url string) error {
	_, route, err := s.ResolveRoute(url)
	if err != nil {
		return err
	}
	return s.LoadRoute(ctx, route)
}

// GetMetadata returns cached metadata for url. Without allowStale, entries
// that should expire are not returned.
func (s *Session) GetMetadata(url string, allowStale bool) *router.Metadata {
	md := s.meta.get(canonicalURL(url))
	if md == nil {
		return nil
	}
	if !allowStale && md.ShouldExpire(s.now()) {
		return nil
	}
	return md
}

// FetchMetadata fetches and caches metadata for url. Concurrent fetches
// for the same URL share one request.
func (s *Session) FetchMetadata(ctx context.Context, url string) (*router.Metadata, error) {
	loc, route, err := s.ResolveRoute(url)
	if err != nil {
		return nil, err
	}
	v, err, _ := s.metaGroup.Do(loc.URL, func() (any, error) {
		if err := s.LoadRoute(ctx, route); err != nil {
			return nil, err
		}
		md, err := s.fetcher.FetchMetadata(ctx, loc, route)
		if err != nil {
			return nil, err
		}
		if md == nil {
			md = &router.Metadata{}
		}
		if md.FetchedAt.IsZero() {
			md.FetchedAt = s.now()
		}
		if md.MaxAge == 0 {
			md.MaxAge = s.maxAge
		}
		s.meta.put(loc.URL, md)
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*router.Metadata), nil
}

// SetMetadata stores metadata for url.
func (s *Session) SetMetadata(url string, md *router.Metadata) {
	s.meta.put(canonicalURL(url), md)
}

// GetResource returns the resource entry for key.
func (s *Session) GetResource(key string) (*resource.Entry, bool) {
	return s.resources.Get(key)
}

// SetResource stores a successful resource value.
func (s *Session) SetResource(key string, value any) {
	s.resources.Set(key, value)
}

// InsertHeadTags contributes tags and returns a function removing them.
func (s *Session) InsertHeadTags(tags []head.Tag) (dispose func()) {
	return s.headManager.Insert(tags)
}

// HeadTags returns the merged head, static tags first.
func (s *Session) HeadTags() []head.Tag {
	return s.head.Tags(s.headManager)
}

// OnHeadTags calls fn with the merged page contributions after each change.
func (s *Session) OnHeadTags(fn func([]head.Tag)) (dispose func()) {
	return s.headManager.OnChange(fn)
}

// seedMetadata moves embedded metadata entries into the metadata store.
func (s *Session) seedMetadata(data map[string]json.RawMessage) {
	prefix := metadataKeyName + "|"
	for key, raw := range data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		var md router.Metadata
		if err := json.Unmarshal(raw, &md); err != nil {
			s.logger.Warn("bad embedded metadata", ferrors.New("E006").WithField("key", key).Wrap(err).LogAttrs()...)
			continue
		}
		s.meta.put(strings.TrimPrefix(key, prefix), &md)
	}
}

func canonicalURL(url string) string {
	parts, err := routepath.Clean(url)
	if err != nil {
		return url
	}
	return parts.String()
}
