package head

import (
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestMergeReplacesKeyedInPlace(t *testing.T) {
	a1 := Tag{Key: "a", Content: "1"}
	b2 := Tag{Key: "b", Content: "2"}
	a3 := Tag{Key: "a", Content: "3"}

	got := Merge([]Tag{a1, b2}, []Tag{a3})
	want := []Tag{a3, b2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMergeKeepsKeyless(t *testing.T) {
	style := Style("body{}")
	got := Merge([]Tag{style}, []Tag{style})
	if len(got) != 2 {
		t.Errorf("keyless tags collapsed: %+v", got)
	}
}

func TestMergeOrder(t *testing.T) {
	tests := []struct {
		name string
		sets [][]Tag
		want string
	}{
		{name: "empty", sets: nil, want: ""},
		{
			name: "document then page",
			sets: [][]Tag{
				{Raw("charset", "C"), Raw("title", "T0")},
				{Raw("", "S1"), Raw("title", "T1")},
			},
			want: "CT1S1",
		},
		{
			name: "nested pages",
			sets: [][]Tag{
				{Raw("title", "layout")},
				{Raw("meta:description", "D1")},
				{Raw("title", "page"), Raw("meta:description", "D2"), Raw("", "X")},
			},
			want: "pageD2X",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(Merge(tt.sets...)); got != tt.want {
				t.Errorf("Render(Merge) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTagConstructors(t *testing.T) {
	tests := []struct {
		tag     Tag
		key     string
		content string
	}{
		{Title(`A & "B"`), "title", "<title>A &amp; &quot;B&quot;</title>"},
		{Charset("utf-8"), "charset", `<meta charset="utf-8">`},
		{Meta("description", "x<y"), "meta:description", `<meta name="description" content="x&lt;y">`},
		{Property("og:title", "Hi"), "property:og:title", `<meta property="og:title" content="Hi">`},
		{Canonical("/a?b=1&c=2"), "link:canonical", `<link rel="canonical" href="/a?b=1&amp;c=2">`},
		{Link("icon", "/f.ico"), "", `<link rel="icon" href="/f.ico">`},
		{Style("p{}"), "", "<style>p{}</style>"},
		{Script("/app.js"), "", `<script src="/app.js" defer></script>`},
		{Raw("k", "<base>"), "k", "<base>"},
	}
	for _, tt := range tests {
		if tt.tag.Key != tt.key || tt.tag.Content != tt.content {
			t.Errorf("tag = %+v, want key %q content %q", tt.tag, tt.key, tt.content)
		}
	}
	if !Title("x").Keyed() || Style("").Keyed() {
		t.Error("Keyed mismatch")
	}
	if Style("").WithKey("s").Key != "s" {
		t.Error("WithKey did not set key")
	}
}

func TestManagerInsertDispose(t *testing.T) {
	m := NewManager()
	var seen [][]Tag
	stop := m.OnChange(func(tags []Tag) { seen = append(seen, tags) })

	disposeA := m.Insert([]Tag{Title("A")})
	disposeB := m.Insert([]Tag{Title("B"), Meta("x", "1")})

	if got := Render(m.Merged()); got != Title("B").Content+Meta("x", "1").Content {
		t.Errorf("Merged = %q", got)
	}

	disposeB()
	disposeB()
	if got := Render(m.Merged()); got != Title("A").Content {
		t.Errorf("Merged after dispose = %q", got)
	}
	if len(seen) != 3 {
		t.Errorf("OnChange called %d times, want 3", len(seen))
	}

	stop()
	disposeA()
	if len(seen) != 3 {
		t.Error("listener called after unregister")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestHydrationFlagClaimOnce(t *testing.T) {
	var flag HydrationFlag
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if flag.Claim() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("Claim won %d times, want 1", wins)
	}
	if !flag.Hydrated() {
		t.Error("flag should be hydrated")
	}
}

func TestFirstClientRenderMatchesServer(t *testing.T) {
	h := &Head{Static: []Tag{Charset("utf-8"), Title("Site")}}

	server := NewManager()
	server.Insert([]Tag{Title("Post"), Style(".a{}")})
	serverHTML := h.RenderServer(server)

	// The client has not mounted its pages yet when it first renders.
	var flag HydrationFlag
	client := NewManager()
	first := h.RenderClient(&flag, serverHTML, client)
	if first != serverHTML {
		t.Fatalf("first client head = %q, want %q", first, serverHTML)
	}

	client.Insert([]Tag{Title("Post"), Style(".a{}")})
	second := h.RenderClient(&flag, serverHTML, client)
	if second != serverHTML {
		t.Errorf("second client head = %q, want derived %q", second, serverHTML)
	}

	client.Insert([]Tag{Title("Other")})
	if got := h.RenderClient(&flag, serverHTML, client); !strings.Contains(got, "Other") {
		t.Errorf("later render should derive from contributions: %q", got)
	}
}

func TestDiffApply(t *testing.T) {
	a, b, c, d := Raw("a", "A"), Raw("b", "B"), Raw("", "C"), Raw("", "D")
	tests := []struct {
		name       string
		prev, next []Tag
		ops        []PatchOp
	}{
		{name: "same", prev: []Tag{a, b}, next: []Tag{a, b}},
		{name: "grow", prev: []Tag{a}, next: []Tag{a, b, c}, ops: []PatchOp{PatchAppend, PatchAppend}},
		{name: "shrink", prev: []Tag{a, b, c}, next: []Tag{a}, ops: []PatchOp{PatchRemove, PatchRemove}},
		{name: "replace", prev: []Tag{a, b}, next: []Tag{a, d}, ops: []PatchOp{PatchReplace}},
		{name: "from empty", prev: nil, next: []Tag{c, d}, ops: []PatchOp{PatchAppend, PatchAppend}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := Diff(tt.prev, tt.next)
			var ops []PatchOp
			for _, p := range patches {
				ops = append(ops, p.Op)
			}
			if !reflect.DeepEqual(ops, tt.ops) {
				t.Errorf("ops = %v, want %v", ops, tt.ops)
			}
			got, err := Apply(tt.prev, patches)
			if err != nil {
				t.Fatal(err)
			}
			if Render(got) != Render(tt.next) {
				t.Errorf("Apply = %q, want %q", Render(got), Render(tt.next))
			}
		})
	}
}

func TestApplyOutOfRange(t *testing.T) {
	if _, err := Apply(nil, []Patch{{Op: PatchRemove, Index: 0}}); err == nil {
		t.Error("expected error removing from empty head")
	}
	if _, err := Apply(nil, []Patch{{Op: PatchReplace, Index: 2}}); err == nil {
		t.Error("expected error replacing past end")
	}
}

func TestSynchronizer(t *testing.T) {
	h := &Head{Static: []Tag{Title("Site")}}
	m := NewManager()
	initial := h.Tags(m)
	doc := NewMemoryDocument(initial)

	s := NewSynchronizer(h, m, doc, nil)
	s.Start(initial)
	defer s.Stop()

	dispose := m.Insert([]Tag{Title("Page"), Meta("description", "d")})
	if want := Title("Page").Content + Meta("description", "d").Content; doc.HTML() != want {
		t.Errorf("doc = %q, want %q", doc.HTML(), want)
	}

	dispose()
	if doc.HTML() != Title("Site").Content {
		t.Errorf("doc after dispose = %q", doc.HTML())
	}
	if !reflect.DeepEqual(s.Current(), doc.Tags()) {
		t.Error("synchronizer state diverged from document")
	}

	s.Stop()
	m.Insert([]Tag{Title("Ignored")})
	if doc.HTML() != Title("Site").Content {
		t.Error("document changed after Stop")
	}
}
