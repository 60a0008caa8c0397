package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/firebolt/pkg/resource"

// ComputeFunc produces a resource value.
type ComputeFunc func(ctx context.Context) (any, error)

// Cache is a session-scoped resource cache. Entries are created lazily and
// never evicted; a new session starts with a new cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	embed   *embedSink
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics records computations and hits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for computation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Cache) {
		c.tracer = tracer
	}
}

// WithEmbed makes the cache write each successfully settled value to w as
// an embedded script, once per key. Used for server render passes.
func WithEmbed(w io.Writer) Option {
	return func(c *Cache) {
		c.embed = &embedSink{w: w}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{entries: make(map[string]*Entry)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// GetOrCreate returns the entry for key. If none exists, a pending entry is
// registered and compute starts in the background. compute runs at most
// once per key per cache; it is not cancelled when ctx is.
func (c *Cache) GetOrCreate(ctx context.Context, key string, compute ComputeFunc) *Entry {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.metrics.RecordResourceHit()
		return e
	}
	e := newPending(key)
	c.entries[key] = e
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), e, compute)
	return e
}

func (c *Cache) run(ctx context.Context, e *Entry, compute ComputeFunc) {
	ctx, span := c.tracer.Start(ctx, "resource.compute",
		trace.WithAttributes(attribute.String("firebolt.resource.key", e.key)))
	defer span.End()
	start := time.Now()

	value, err := c.call(ctx, compute)
	c.metrics.RecordResource(err, time.Since(start))

	if err != nil {
		fe := ferrors.New("E004").WithField("key", e.key).Wrap(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("resource failed", fe.LogAttrs()...)
		e.settle(nil, fe)
		return
	}
	span.SetStatus(codes.Ok, "")

	// The embed write happens before settling so a render pass waiting on
	// this entry always finds its script in the sink.
	if c.embed != nil && e.Status() == StatusPending {
		if werr := c.embed.write(e.key, value); werr != nil {
			c.logger.Warn("resource embed failed", "key", e.key, "error", werr)
		}
	}
	if e.settle(value, nil) {
		c.logger.Debug("resource settled", "key", e.key, "duration", time.Since(start))
	}
}

func (c *Cache) call(ctx context.Context, compute ComputeFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resource: compute panicked: %v", r)
		}
	}()
	return compute(ctx)
}

// Get returns the entry for key without creating one.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores value as a successful entry for key. A pending entry for key
// settles with value and its computation's result is discarded.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.Status() != StatusPending {
		c.entries[key] = newSettled(key, value, nil)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	e.settle(value, nil)
}

// Seed adds successful entries from serialized server data. Keys that
// already have an entry are left alone. It returns the number of entries
// added.
func (c *Cache) Seed(data map[string]json.RawMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, raw := range data {
		if _, ok := c.entries[key]; ok {
			continue
		}
		c.entries[key] = newSettled(key, nil, raw)
		n++
	}
	return n
}

// Keys returns the cached keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until every entry present when Wait is called has settled, or
// ctx is done.
func (c *Cache) Wait(ctx context.Context) error {
	c.mu.Lock()
	pending := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		pending = append(pending, e)
	}
	c.mu.Unlock()

	for _, e := range pending {
		select {
		case <-e.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
