package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/vango-dev/firebolt/pkg/router"
)

// MetaPath is the server endpoint that serves page metadata.
const MetaPath = "/_firebolt/meta"

// MetadataFetcher produces metadata for a resolved location.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, loc router.Location, route *router.Route) (*router.Metadata, error)
}

// MetadataFetcherFunc adapts a function to MetadataFetcher.
type MetadataFetcherFunc func(ctx context.Context, loc router.Location, route *router.Route) (*router.Metadata, error)

// FetchMetadata implements MetadataFetcher.
func (f MetadataFetcherFunc) FetchMetadata(ctx context.Context, loc router.Location, route *router.Route) (*router.Metadata, error) {
	return f(ctx, loc, route)
}

// ModuleMetadata calls the route module's Metadata function. Routes
// without one have empty metadata. The module must be loaded.
var ModuleMetadata = MetadataFetcherFunc(func(ctx context.Context, loc router.Location, route *router.Route) (*router.Metadata, error) {
	fn := route.Metadata()
	if fn == nil {
		return &router.Metadata{}, nil
	}
	return fn(ctx, loc)
})

// HTTPMetadata fetches metadata from a server's metadata endpoint.
type HTTPMetadata struct {
	// BaseURL is the server origin, e.g. "http://localhost:3000".
	BaseURL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// FetchMetadata implements MetadataFetcher.
func (h *HTTPMetadata) FetchMetadata(ctx context.Context, loc router.Location, _ *router.Route) (*router.Metadata, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := h.BaseURL + MetaPath + "?url=" + url.QueryEscape(loc.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runtime: metadata for %q: %s", loc.URL, resp.Status)
	}
	var md router.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("runtime: decode metadata for %q: %w", loc.URL, err)
	}
	return &md, nil
}

// metadataStore caches metadata by canonical URL.
type metadataStore struct {
	mu      sync.RWMutex
	entries map[string]*router.Metadata
}

func newMetadataStore() *metadataStore {
	return &metadataStore{entries: make(map[string]*router.Metadata)}
}

func (s *metadataStore) get(url string) *router.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[url]
}

func (s *metadataStore) put(url string, md *router.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[url] = md
}
