package firebolt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vango-dev/firebolt/internal/config"
	"github.com/vango-dev/firebolt/pkg/head"
	"github.com/vango-dev/firebolt/pkg/history"
	"github.com/vango-dev/firebolt/pkg/render"
	"github.com/vango-dev/firebolt/pkg/router"
	"github.com/vango-dev/firebolt/pkg/runtime"
)

func testApp(loads *atomic.Int32) *App {
	app := New(Config{
		Name:    "blog",
		Head:    []head.Tag{head.Charset("utf-8")},
		Scripts: []string{"/client.js"},
	})
	app.Route("home", "/", router.Module{
		Page: func(ctx context.Context, props *router.PageProps) render.Fragment {
			props.Meta(head.Title("Blog"))
			return render.HTML("<h1>Blog</h1>")
		},
	})
	app.Lazy("post", "/posts/:slug", router.LoaderFunc(func(ctx context.Context, route *router.Route) (router.Module, error) {
		loads.Add(1)
		return router.Module{
			Page: func(ctx context.Context, props *router.PageProps) render.Fragment {
				return render.Text("post " + props.Param("slug"))
			},
		}, nil
	}))
	app.Lazy("gone", "/gone", router.LoaderFunc(func(context.Context, *router.Route) (router.Module, error) {
		return router.Module{}, errors.New("chunk missing")
	}))
	return app
}

func TestAppServe(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FIREBOLT_DEV", "")
	var loads atomic.Int32
	app := testApp(&loads)

	tests := []struct {
		path     string
		wantCode int
		want     string
	}{
		{"/", http.StatusOK, `<meta charset="utf-8"><title>Blog</title>`},
		{"/posts/hello", http.StatusOK, "post hello"},
		{"/posts/again", http.StatusOK, "post again"},
		{"/gone", http.StatusInternalServerError, ""},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, rec.Body.String())
			}
		})
	}

	if got := loads.Load(); got != 1 {
		t.Errorf("lazy module loaded %d times, want 1", got)
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "blog_renders_total") {
		t.Errorf("metrics missing namespaced counter:\n%s", rec.Body.String())
	}
}

func TestAppHydration(t *testing.T) {
	var loads atomic.Int32
	app := testApp(&loads)

	var doc strings.Builder
	if err := app.Session("/posts/x").RenderDocument(context.Background(), &doc); err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}

	s := app.ClientSession(runtime.WithPlatform(history.NewMemory("/posts/x")))
	client, err := runtime.NewClient(context.Background(), s, doc.String())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got, want := client.FirstHead(), render.HeadHTML(doc.String()); got != want {
		t.Errorf("first head = %q, want server head %q", got, want)
	}
	if !strings.Contains(client.Body(), "post x") {
		t.Errorf("body = %q", client.Body())
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("FIREBOLT_DEV", "1")
	app := New(Config{Name: "my-app"})
	if app.config.Address != ":8123" {
		t.Errorf("Address = %q", app.config.Address)
	}
	if app.Server().Reload() == nil {
		t.Error("dev reload not enabled")
	}
}

func TestFromProject(t *testing.T) {
	cfg := config.New()
	cfg.Name = "site"
	got := FromProject(cfg)
	if got.Name != "site" || got.Address != ":3000" || got.MetadataMaxAge.String() != "30s" {
		t.Errorf("FromProject = %+v", got)
	}
}

func TestPrometheusName(t *testing.T) {
	tests := map[string]bool{"blog": true, "my_app": true, "my-app": false, "1app": false, "app1": true}
	for in, want := range tests {
		if got := prometheusName(in); got != want {
			t.Errorf("prometheusName(%q) = %v, want %v", in, got, want)
		}
	}
}
