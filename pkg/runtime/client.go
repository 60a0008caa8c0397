package runtime

import (
	"context"
	"html"
	"strings"
	"sync"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/head"
	"github.com/vango-dev/firebolt/pkg/nav"
	"github.com/vango-dev/firebolt/pkg/render"
	"github.com/vango-dev/firebolt/pkg/resource"
	"github.com/vango-dev/firebolt/pkg/router"
)

// Client is a hydrated client session following a navigation controller.
type Client struct {
	session  *Session
	ctrl     *nav.Controller
	document *head.MemoryDocument
	sync     *head.Synchronizer
	onError  func(error) render.Fragment

	firstHead string

	mu   sync.Mutex
	body string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	navOpts []nav.Option
	onError func(error) render.Fragment
}

// WithNavOptions passes options to the navigation controller.
func WithNavOptions(opts ...nav.Option) ClientOption {
	return func(c *clientConfig) {
		c.navOpts = append(c.navOpts, opts...)
	}
}

// WithErrorBoundary sets how failed pages render.
func WithErrorBoundary(fn func(error) render.Fragment) ClientOption {
	return func(c *clientConfig) {
		c.onError = fn
	}
}

func defaultErrorBoundary(err error) render.Fragment {
	return render.HTML(`<div data-firebolt-error="` + html.EscapeString(ferrors.Code(err)) + `">` +
		html.EscapeString(err.Error()) + `</div>`)
}

// NewClient hydrates s from a server-rendered document: resources and
// metadata are seeded from the embedded data, the route for the current
// location is loaded, and the first head render reuses the server head.
func NewClient(ctx context.Context, s *Session, document string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{onError: defaultErrorBoundary}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := resource.ParseEmbedded(strings.NewReader(document))
	if err != nil {
		s.logger.Warn("embedded data partially unreadable", ferrors.New("E006").Wrap(err).LogAttrs()...)
	}
	seeded := s.resources.Seed(data)
	s.seedMetadata(data)

	navOpts := append([]nav.Option{
		nav.WithLogger(s.logger),
		nav.WithMetrics(s.metrics),
		nav.WithTracer(s.tracer),
	}, cfg.navOpts...)

	c := &Client{
		session: s,
		ctrl:    nav.New(s, s.History(), navOpts...),
		onError: cfg.onError,
	}

	loc := c.ctrl.Location()
	if loc.RouteID == "" {
		return nil, ferrors.New("E001").WithField("url", loc.URL)
	}
	if err := s.LoadRouteByURL(ctx, loc.URL); err != nil {
		return nil, ferrors.FromError(err, "E002").WithField("url", loc.URL)
	}

	c.firstHead = s.head.RenderClient(s.hydration, render.HeadHTML(document), s.headManager)
	c.renderBody(ctx, loc)

	c.document = head.NewMemoryDocument(s.HeadTags())
	c.sync = head.NewSynchronizer(s.head, s.headManager, &countingHead{doc: c.document, s: s}, s.logger)
	c.sync.Start(c.document.Tags())

	c.ctrl.Subscribe(func(loc router.Location) {
		c.renderBody(ctx, loc)
	})

	s.logger.Debug("client hydrated", "url", loc.URL, "seeded", seeded)
	return c, nil
}

// Run runs the navigation controller until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer c.sync.Stop()
	return c.ctrl.Run(ctx)
}

// Session returns the client session.
func (c *Client) Session() *Session { return c.session }

// Controller returns the navigation controller.
func (c *Client) Controller() *nav.Controller { return c.ctrl }

// Document returns the live document head.
func (c *Client) Document() *head.MemoryDocument { return c.document }

// FirstHead returns the head markup of the hydration render.
func (c *Client) FirstHead() string { return c.firstHead }

// Body returns the current body markup.
func (c *Client) Body() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

func (c *Client) renderBody(ctx context.Context, loc router.Location) {
	s := c.session
	route, ok := s.registry.Get(loc.RouteID)
	if !ok || route.Page() == nil {
		s.logger.Warn("committed route not loaded", "route", loc.RouteID, "url", loc.URL)
		return
	}

	boundary := render.Boundary{OnError: c.onError}
	if loading := route.Loading(); loading != nil {
		md := s.GetMetadata(loc.URL, true)
		boundary.Fallback = loading(ctx, router.NewPageProps(loc, s.resources, md, nil))
	}

	frag := boundary.Client(func() render.Fragment {
		md, pending := c.metadata(ctx, loc)
		if pending.IsPending() {
			return pending
		}
		return s.renderRoute(ctx, loc, route, md, route.Page())
	}, func() {
		// Only the committed location re-renders after a suspension.
		if c.ctrl.Location().URL == loc.URL {
			c.renderBody(ctx, loc)
		}
	})

	c.mu.Lock()
	c.body = frag.HTML()
	c.mu.Unlock()
}

// metadata returns the metadata for loc. When none is cached it is read
// through the resource cache, suspending until it arrives. A failed fetch
// renders the page without metadata.
func (c *Client) metadata(ctx context.Context, loc router.Location) (*router.Metadata, render.Fragment) {
	s := c.session
	if md := s.GetMetadata(loc.URL, true); md != nil {
		return md, render.Fragment{}
	}
	r := resource.Use(ctx, s.resources, MetadataKey(loc.URL), func(ctx context.Context) (*router.Metadata, error) {
		return s.FetchMetadata(ctx, loc.URL)
	})
	switch r.Status {
	case resource.StatusPending:
		return nil, render.Pending(r.Ready())
	case resource.StatusError:
		s.logger.Debug("rendering without metadata", ferrors.FromError(r.Err, "E003").LogAttrs()...)
		return nil, render.Fragment{}
	}
	if r.Value != nil {
		s.SetMetadata(loc.URL, r.Value)
	}
	return r.Value, render.Fragment{}
}

// countingHead records head patches pushed to the document.
type countingHead struct {
	doc *head.MemoryDocument
	s   *Session
}

func (h *countingHead) Apply(patches []head.Patch) error {
	if err := h.doc.Apply(patches); err != nil {
		return err
	}
	h.s.metrics.RecordHeadSync(len(patches))
	return nil
}
