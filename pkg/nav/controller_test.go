package nav

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
	"github.com/vango-dev/firebolt/pkg/history"
	"github.com/vango-dev/firebolt/pkg/render"
	"github.com/vango-dev/firebolt/pkg/router"
)

func page(context.Context, *router.PageProps) render.Fragment { return render.HTML("page") }

// fakeRuntime serves routes from a registry. Modules for gated routes load
// only once their gate is closed.
type fakeRuntime struct {
	reg     *router.Registry
	modules *router.ModuleCache

	mu        sync.Mutex
	gates     map[string]chan struct{}
	loadErr   map[string]error
	meta      map[string]*router.Metadata
	metaErr   error
	fetches   atomic.Int32
	prefetchs chan string
}

func newFakeRuntime(routes ...*router.Route) *fakeRuntime {
	rt := &fakeRuntime{
		reg:       router.NewRegistry().MustAdd(routes...),
		gates:     make(map[string]chan struct{}),
		loadErr:   make(map[string]error),
		meta:      make(map[string]*router.Metadata),
		prefetchs: make(chan string, 8),
	}
	rt.modules = router.NewModuleCache(router.LoaderFunc(rt.load), nil)
	return rt
}

func (rt *fakeRuntime) gate(routeID string) chan struct{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ch := make(chan struct{})
	rt.gates[routeID] = ch
	return ch
}

func (rt *fakeRuntime) load(ctx context.Context, route *router.Route) (router.Module, error) {
	rt.mu.Lock()
	gate := rt.gates[route.ID]
	err := rt.loadErr[route.ID]
	rt.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return router.Module{}, err
	}
	return router.Module{Page: page}, nil
}

func (rt *fakeRuntime) ResolveRoute(url string) (router.Location, *router.Route, error) {
	return rt.reg.Locate(url)
}

func (rt *fakeRuntime) LoadRoute(ctx context.Context, route *router.Route) error {
	return rt.modules.Load(ctx, route)
}

func (rt *fakeRuntime) LoadRouteByURL(ctx context.Context, url string) error {
	_, route, err := rt.reg.Locate(url)
	if err != nil {
		return err
	}
	err = rt.modules.Load(ctx, route)
	rt.prefetchs <- url
	return err
}

func (rt *fakeRuntime) GetMetadata(url string, allowStale bool) *router.Metadata {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.meta[url]
}

func (rt *fakeRuntime) FetchMetadata(ctx context.Context, url string) (*router.Metadata, error) {
	rt.fetches.Add(1)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.metaErr != nil {
		return nil, rt.metaErr
	}
	md := &router.Metadata{Title: url, FetchedAt: time.Now()}
	rt.meta[url] = md
	return md, nil
}

type harness struct {
	t      *testing.T
	rt     *fakeRuntime
	mem    *history.Memory
	bridge *history.Bridge
	ctrl   *Controller
	events chan Transition
}

func start(t *testing.T, rt *fakeRuntime, initial string) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		rt:     rt,
		mem:    history.NewMemory(initial),
		events: make(chan Transition, 64),
	}
	h.bridge = history.NewBridge(h.mem, nil)
	h.ctrl = New(rt, h.bridge, WithObserver(func(tr Transition) { h.events <- tr }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Run registers its listener before the loop starts; wait for it.
	deadline := time.Now().Add(time.Second)
	for !h.ctrl.running.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(5 * time.Millisecond)
	return h
}

func (h *harness) navigate(url string) {
	h.t.Helper()
	if err := h.ctrl.Navigate(url); err != nil {
		h.t.Fatalf("Navigate(%q): %v", url, err)
	}
}

// waitFor returns the first transition to state for url.
func (h *harness) waitFor(to State, url string) Transition {
	h.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case tr := <-h.events:
			if tr.To == to && tr.URL == url {
				return tr
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for %v %q", to, url)
		}
	}
}

func TestInitialLocation(t *testing.T) {
	rt := newFakeRuntime(&router.Route{ID: "user", Pattern: "/users/:id"})
	h := start(t, rt, "/users/5?tab=1#top")

	loc := h.ctrl.Location()
	if loc.URL != "/users/5?tab=1" || loc.RouteID != "user" || loc.Param("id") != "5" {
		t.Errorf("initial location = %+v", loc)
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("state = %v", h.ctrl.State())
	}
}

func TestNavigateCommits(t *testing.T) {
	rt := newFakeRuntime(
		&router.Route{ID: "home", Pattern: "/", MetadataPolicy: router.MetadataNone},
		&router.Route{ID: "about", Pattern: "/about", MetadataPolicy: router.MetadataNone},
	)
	h := start(t, rt, "/")

	var notified atomic.Value
	h.ctrl.Subscribe(func(loc router.Location) { notified.Store(loc) })

	h.navigate("/about")
	h.waitFor(StateResolving, "/about")
	tr := h.waitFor(StateCommitted, "/about")
	if tr.Location.RouteID != "about" {
		t.Errorf("committed = %+v", tr.Location)
	}
	h.waitFor(StateIdle, "/about")

	if got := h.ctrl.Location().URL; got != "/about" {
		t.Errorf("Location = %q", got)
	}
	if loc, _ := notified.Load().(router.Location); loc.URL != "/about" {
		t.Errorf("subscriber saw %+v", loc)
	}
}

func TestNewerURLCancelsInflight(t *testing.T) {
	x := &router.Route{ID: "x", Pattern: "/x", MetadataPolicy: router.MetadataNone}
	y := &router.Route{ID: "y", Pattern: "/y", MetadataPolicy: router.MetadataNone}
	rt := newFakeRuntime(&router.Route{ID: "home", Pattern: "/"}, x, y)
	gateX := rt.gate("x")
	h := start(t, rt, "/")

	var commits []string
	var mu sync.Mutex
	h.ctrl.Subscribe(func(loc router.Location) {
		mu.Lock()
		commits = append(commits, loc.URL)
		mu.Unlock()
	})

	h.navigate("/x")
	h.waitFor(StateResolving, "/x")
	h.navigate("/y")
	h.waitFor(StateCancelled, "/x")
	h.waitFor(StateCommitted, "/y")

	// /x finishes loading after /y committed; its result is discarded.
	close(gateX)
	deadline := time.Now().Add(time.Second)
	for !x.Loaded() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if got := h.ctrl.Location().URL; got != "/y" {
		t.Errorf("Location = %q, want /y", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(commits) != 1 || commits[0] != "/y" {
		t.Errorf("commits = %v, want [/y]", commits)
	}
	if !x.Loaded() {
		t.Error("cancelled load should still run to completion")
	}
}

func TestSameURLIsNoTransition(t *testing.T) {
	rt := newFakeRuntime(&router.Route{ID: "doc", Pattern: "/doc"})
	h := start(t, rt, "/doc")

	h.mem.SetHash("section")
	tr := h.waitFor(StateIdle, "/doc")
	if tr.From != StateIdle {
		t.Errorf("From = %v, want idle", tr.From)
	}
	if h.ctrl.Location().URL != "/doc" {
		t.Errorf("Location = %q", h.ctrl.Location().URL)
	}
}

func TestReturningToCurrentURLCancels(t *testing.T) {
	slow := &router.Route{ID: "slow", Pattern: "/slow"}
	rt := newFakeRuntime(&router.Route{ID: "home", Pattern: "/"}, slow)
	gate := rt.gate("slow")
	h := start(t, rt, "/")

	h.navigate("/slow")
	h.waitFor(StateResolving, "/slow")
	h.mem.Back()
	h.waitFor(StateCancelled, "/slow")
	h.waitFor(StateIdle, "/")
	close(gate)

	if h.ctrl.Location().URL != "/" {
		t.Errorf("Location = %q", h.ctrl.Location().URL)
	}
}

func TestLoadFailureKeepsLocation(t *testing.T) {
	rt := newFakeRuntime(
		&router.Route{ID: "home", Pattern: "/"},
		&router.Route{ID: "broken", Pattern: "/broken"},
	)
	rt.loadErr["broken"] = errors.New("chunk failed")
	h := start(t, rt, "/")

	h.navigate("/broken")
	h.waitFor(StateResolving, "/broken")
	tr := h.waitFor(StateIdle, "/broken")
	if ferrors.Code(tr.Err) != "E002" {
		t.Errorf("Err = %v, want E002", tr.Err)
	}
	if h.ctrl.Location().URL != "/" {
		t.Errorf("Location = %q, want /", h.ctrl.Location().URL)
	}
}

func TestMatchFailure(t *testing.T) {
	rt := newFakeRuntime(&router.Route{ID: "home", Pattern: "/"})
	h := start(t, rt, "/")

	h.navigate("/nowhere")
	tr := h.waitFor(StateIdle, "/nowhere")
	if ferrors.Code(tr.Err) != "E001" {
		t.Errorf("Err = %v, want E001", tr.Err)
	}
}

func TestMetadataFailure(t *testing.T) {
	rt := newFakeRuntime(
		&router.Route{ID: "home", Pattern: "/"},
		&router.Route{ID: "m", Pattern: "/m", MetadataPolicy: router.MetadataBlocking},
	)
	rt.metaErr = errors.New("503")
	h := start(t, rt, "/")

	h.navigate("/m")
	tr := h.waitFor(StateIdle, "/m")
	if ferrors.Code(tr.Err) != "E003" {
		t.Errorf("Err = %v, want E003", tr.Err)
	}
	if h.ctrl.Location().URL != "/" {
		t.Errorf("Location = %q", h.ctrl.Location().URL)
	}
}

func TestMetadataPolicy(t *testing.T) {
	loading := func(context.Context, *router.PageProps) render.Fragment { return render.Text("...") }

	tests := []struct {
		name    string
		policy  router.MetadataPolicy
		loading bool
		cached  *router.Metadata
		want    int32
	}{
		{name: "auto without loading fetches", policy: router.MetadataAuto, want: 1},
		{name: "auto with loading skips", policy: router.MetadataAuto, loading: true, want: 0},
		{name: "blocking with loading fetches", policy: router.MetadataBlocking, loading: true, want: 1},
		{name: "none skips", policy: router.MetadataNone, want: 0},
		{
			name:   "fresh cache skips",
			policy: router.MetadataAuto,
			cached: &router.Metadata{FetchedAt: time.Now(), MaxAge: time.Hour},
			want:   0,
		},
		{
			name:   "stale cache fetches",
			policy: router.MetadataAuto,
			cached: &router.Metadata{FetchedAt: time.Now().Add(-time.Hour), MaxAge: time.Minute},
			want:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := &router.Module{Page: page}
			if tt.loading {
				mod.Loading = loading
			}
			target := router.NewRoute("target", "/target", mod)
			target.MetadataPolicy = tt.policy

			rt := newFakeRuntime(&router.Route{ID: "home", Pattern: "/"}, target)
			if tt.cached != nil {
				rt.meta["/target"] = tt.cached
			}
			h := start(t, rt, "/")

			h.navigate("/target")
			h.waitFor(StateCommitted, "/target")
			if got := rt.fetches.Load(); got != tt.want {
				t.Errorf("fetches = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunTwice(t *testing.T) {
	rt := newFakeRuntime(&router.Route{ID: "home", Pattern: "/"})
	h := start(t, rt, "/")
	if err := h.ctrl.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run = %v, want ErrRunning", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:      "idle",
		StateResolving: "resolving",
		StateCommitted: "committed",
		StateCancelled: "cancelled",
		State(9):       "State(9)",
	} {
		if s.String() != want {
			t.Errorf("String() = %q, want %q", s.String(), want)
		}
	}
}
