package nav

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/history"
	"github.com/vango-dev/firebolt/pkg/metrics"
	"github.com/vango-dev/firebolt/pkg/routepath"
	"github.com/vango-dev/firebolt/pkg/router"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/firebolt/pkg/nav"

// ErrRunning is returned by Run when the controller loop is already running.
var ErrRunning = errors.New("nav: controller already running")

// Runtime is the part of the session runtime the controller needs.
type Runtime interface {
	ResolveRoute(url string) (router.Location, *router.Route, error)
	LoadRoute(ctx context.Context, route *router.Route) error
	LoadRouteByURL(ctx context.Context, url string) error
	GetMetadata(url string, allowStale bool) *router.Metadata
	FetchMetadata(ctx context.Context, url string) (*router.Metadata, error)
}

// Adapter is the navigation adapter the host implements once per
// platform. *history.Bridge implements it.
type Adapter interface {
	Location() string
	Navigate(url string, opts ...history.NavigateOption) error
	OnNavigate(fn history.Listener) (dispose func())
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics records navigation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for resolution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// WithObserver registers fn for every state transition. fn runs on the
// controller loop and must not block.
func WithObserver(fn func(Transition)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// WithClock overrides time.Now for metadata staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller reconciles browser history with the committed location.
type Controller struct {
	rt       Runtime
	adapter  Adapter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	observer func(Transition)
	now      func() time.Time

	queue   queue
	running atomic.Bool
	runCtx  atomic.Value // context.Context

	state    atomic.Int32
	location atomic.Pointer[router.Location]

	subMu sync.Mutex
	subID uint64
	subs  map[uint64]func(router.Location)

	// Owned by the loop.
	browserURL string
	currentURL string
	inflight   *token
	nextToken  uint64
}

// New creates a controller whose initial location is the adapter's
// current URL, committed as is.
func New(rt Runtime, adapter Adapter, opts ...Option) *Controller {
	c := &Controller{
		rt:      rt,
		adapter: adapter,
		subs:    make(map[uint64]func(router.Location)),
	}
	c.runCtx.Store(context.Background())
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.queue.init()

	url := canonical(adapter.Location())
	loc, _, err := rt.ResolveRoute(url)
	if err != nil {
		c.logger.Warn("initial location has no route", "url", url, "error", err)
		loc = router.Location{URL: url}
	}
	c.browserURL = loc.URL
	c.currentURL = loc.URL
	c.location.Store(&loc)
	return c
}

// Run runs the controller loop until ctx is done. Loads started by the
// controller use ctx.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)
	c.runCtx.Store(ctx)

	dispose := c.adapter.OnNavigate(func(history.Event) {
		// The platform location is read when the event fires, so the
		// loop sees URL changes in the order they happened.
		url := c.adapter.Location()
		c.post(func() { c.onBrowserChange(url) })
	})
	defer dispose()

	c.logger.Debug("navigation controller started", "url", c.currentURL)
	for {
		select {
		case <-ctx.Done():
			if c.inflight != nil {
				c.cancel(c.inflight)
			}
			c.logger.Debug("navigation controller stopped")
			return nil
		case <-c.queue.wake:
			for _, fn := range c.queue.drain() {
				c.execute(fn)
			}
		}
	}
}

func (c *Controller) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("navigation loop panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (c *Controller) context() context.Context {
	return c.runCtx.Load().(context.Context)
}

func (c *Controller) post(fn func()) {
	c.queue.push(fn)
}

// Location returns the committed location.
func (c *Controller) Location() router.Location {
	return *c.location.Load()
}

// State returns the controller state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Subscribe registers fn to be called with every committed location. fn
// runs on the controller loop.
func (c *Controller) Subscribe(fn func(router.Location)) (dispose func()) {
	c.subMu.Lock()
	c.subID++
	id := c.subID
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Navigate asks the adapter to push url, or replace with
// history.WithReplace. The resulting event drives the controller.
func (c *Controller) Navigate(url string, opts ...history.NavigateOption) error {
	return c.adapter.Navigate(url, opts...)
}

// Prefetch starts loading the module of the route for url without
// navigating. Failures are logged.
func (c *Controller) Prefetch(url string) {
	ctx := c.context()
	go func() {
		if err := c.rt.LoadRouteByURL(ctx, url); err != nil {
			c.logger.Debug("prefetch failed", "url", url, "error", err)
		}
	}()
}

func (c *Controller) onBrowserChange(raw string) {
	url := canonical(raw)
	c.browserURL = url

	if c.inflight != nil {
		c.cancel(c.inflight)
	}
	if url == c.currentURL {
		c.metrics.RecordNavigation(metrics.OutcomeUnchanged, 0)
		c.transition(Transition{To: StateIdle, URL: url})
		return
	}

	c.nextToken++
	tok := &token{id: c.nextToken, url: url, started: c.now()}
	_, tok.span = c.tracer.Start(c.context(), "nav.resolve",
		trace.WithAttributes(attribute.String("firebolt.url", url)))
	c.inflight = tok
	c.logger.Debug("browser url changed", "url", url, "current", c.currentURL)
	c.transition(Transition{To: StateResolving, URL: url})

	loc, route, err := c.rt.ResolveRoute(url)
	if err != nil {
		c.fail(tok, ferrors.New("E001").WithField("url", url).Wrap(err))
		return
	}
	tok.span.SetAttributes(attribute.String("firebolt.route", route.ID))

	if !route.Loaded() {
		c.await(tok, func(ctx context.Context) error {
			return c.rt.LoadRoute(ctx, route)
		}, func(err error) {
			if err != nil {
				c.fail(tok, ferrors.New("E002").WithField("url", url).WithField("route", route.ID).Wrap(err))
				return
			}
			c.afterModule(tok, loc, route)
		})
		return
	}
	c.afterModule(tok, loc, route)
}

func (c *Controller) afterModule(tok *token, loc router.Location, route *router.Route) {
	if !c.needsMetadata(route, loc.URL) {
		c.commit(tok, loc)
		return
	}
	c.await(tok, func(ctx context.Context) error {
		_, err := c.rt.FetchMetadata(ctx, loc.URL)
		return err
	}, func(err error) {
		if err != nil {
			c.fail(tok, ferrors.New("E003").WithField("url", loc.URL).Wrap(err))
			return
		}
		c.commit(tok, loc)
	})
}

func (c *Controller) needsMetadata(route *router.Route, url string) bool {
	switch route.MetadataPolicy {
	case router.MetadataNone:
		return false
	case router.MetadataAuto:
		if route.Loading() != nil {
			return false
		}
	}
	md := c.rt.GetMetadata(url, true)
	return md == nil || md.ShouldExpire(c.now())
}

// await runs work off the loop. then runs on the loop, and only if tok is
// still current.
func (c *Controller) await(tok *token, work func(ctx context.Context) error, then func(error)) {
	ctx := c.context()
	go func() {
		err := work(ctx)
		c.post(func() {
			if tok.cancelled {
				c.logger.Debug("discarding cancelled resolution", "url", tok.url)
				return
			}
			then(err)
		})
	}()
}

func (c *Controller) commit(tok *token, loc router.Location) {
	c.inflight = nil
	c.currentURL = loc.URL
	c.location.Store(&loc)

	d := c.now().Sub(tok.started)
	c.metrics.RecordNavigation(metrics.OutcomeCommitted, d)
	tok.span.SetStatus(codes.Ok, "")
	tok.span.End()
	c.logger.Debug("location committed", "url", loc.URL, "route", loc.RouteID, "duration", d)

	c.transition(Transition{To: StateCommitted, URL: loc.URL, Location: loc})

	c.subMu.Lock()
	fns := make([]func(router.Location), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}

	c.transition(Transition{To: StateIdle, URL: loc.URL})
}

func (c *Controller) cancel(tok *token) {
	tok.cancelled = true
	c.inflight = nil
	c.metrics.RecordNavigation(metrics.OutcomeCancelled, 0)
	tok.span.SetAttributes(attribute.Bool("firebolt.cancelled", true))
	tok.span.End()
	c.logger.Debug("resolution cancelled", "url", tok.url)
	c.transition(Transition{To: StateCancelled, URL: tok.url})
}

// fail absorbs a resolution failure. The committed location stays.
func (c *Controller) fail(tok *token, fe *ferrors.FireboltError) {
	c.inflight = nil
	c.metrics.RecordNavigation(metrics.OutcomeFailed, 0)
	tok.span.RecordError(fe)
	tok.span.SetStatus(codes.Error, fe.Error())
	tok.span.End()
	c.logger.Warn("navigation failed", fe.LogAttrs()...)
	c.transition(Transition{To: StateIdle, URL: tok.url, Err: fe})
}

func (c *Controller) transition(t Transition) {
	t.From = State(c.state.Swap(int32(t.To)))
	if c.observer != nil {
		c.observer(t)
	}
}

// canonical returns the path and query of url, the form browser and
// committed URLs are compared in. Unparseable URLs are kept verbatim.
func canonical(url string) string {
	parts, err := routepath.Clean(url)
	if err != nil {
		return url
	}
	return parts.String()
}
