package history

import (
	"errors"
	"reflect"
	"testing"
)

type recorder struct {
	events []Event
}

func (r *recorder) listen(e Event) { r.events = append(r.events, e) }

func TestPushEmitsExactlyOneEventWithArgs(t *testing.T) {
	mem := NewMemory("/")
	b := NewBridge(mem, nil)
	var rec recorder
	b.OnNavigate(rec.listen)

	state := map[string]int{"scroll": 10}
	if err := b.PushState(state, "/users/1"); err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want 1", len(rec.events))
	}
	e := rec.events[0]
	if e.Type != EventPushState || e.URL != "/users/1" {
		t.Errorf("event = %+v", e)
	}
	if !reflect.DeepEqual(e.Args, []any{state, "/users/1"}) {
		t.Errorf("Args = %v", e.Args)
	}
	if b.Location() != "/users/1" {
		t.Errorf("Location = %q", b.Location())
	}
}

func TestNavigate(t *testing.T) {
	mem := NewMemory("/")
	b := NewBridge(mem, nil)
	var rec recorder
	b.OnNavigate(rec.listen)

	if err := b.Navigate("/a"); err != nil {
		t.Fatal(err)
	}
	if err := b.Navigate("/b", WithReplace(), WithState("s")); err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("got %d events", len(rec.events))
	}
	if rec.events[0].Type != EventPushState || rec.events[1].Type != EventReplaceState {
		t.Errorf("types = %v, %v", rec.events[0].Type, rec.events[1].Type)
	}
	if mem.Len() != 2 || mem.Location() != "/b" || mem.State() != "s" {
		t.Errorf("memory = len %d at %q state %v", mem.Len(), mem.Location(), mem.State())
	}
}

func TestInvalidURL(t *testing.T) {
	b := NewBridge(NewMemory("/"), nil)
	var rec recorder
	b.OnNavigate(rec.listen)

	for _, url := range []string{"", "/a\\b", "/../x"} {
		if err := b.Navigate(url); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Navigate(%q) error = %v, want ErrInvalidURL", url, err)
		}
	}
	if len(rec.events) != 0 {
		t.Errorf("invalid navigation emitted %d events", len(rec.events))
	}
}

type failingPlatform struct{ *Memory }

func (failingPlatform) PushState(any, string) error { return errors.New("quota exceeded") }

func TestPlatformFailureEmitsNothing(t *testing.T) {
	b := NewBridge(failingPlatform{NewMemory("/")}, nil)
	var rec recorder
	b.OnNavigate(rec.listen)

	if err := b.Navigate("/a"); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.events) != 0 {
		t.Error("failed push emitted an event")
	}
}

func TestBackForwardEmitPopState(t *testing.T) {
	mem := NewMemory("/")
	b := NewBridge(mem, nil)
	b.PushState(nil, "/a")
	b.PushState("b-state", "/b")

	var rec recorder
	b.OnNavigate(rec.listen)

	if !mem.Back() || !mem.Back() {
		t.Fatal("Back should succeed twice")
	}
	if mem.Back() {
		t.Error("Back at first entry should fail")
	}
	if !mem.Forward() || !mem.Forward() {
		t.Fatal("Forward should succeed twice")
	}
	if mem.Forward() {
		t.Error("Forward at last entry should fail")
	}

	var urls []string
	for _, e := range rec.events {
		if e.Type != EventPopState || e.Args != nil {
			t.Errorf("event = %+v", e)
		}
		urls = append(urls, e.URL)
	}
	if want := []string{"/a", "/", "/a", "/b"}; !reflect.DeepEqual(urls, want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}
	if rec.events[3].State != "b-state" {
		t.Errorf("state = %v", rec.events[3].State)
	}
}

func TestPushDiscardsForward(t *testing.T) {
	mem := NewMemory("/")
	mem.PushState(nil, "/a")
	mem.PushState(nil, "/b")
	mem.Back()
	mem.PushState(nil, "/c")
	if mem.Len() != 3 || mem.Forward() {
		t.Errorf("forward entries not discarded: len %d", mem.Len())
	}
}

func TestSetHash(t *testing.T) {
	mem := NewMemory("/doc?x=1#old")
	b := NewBridge(mem, nil)
	var rec recorder
	b.OnNavigate(rec.listen)

	mem.SetHash("#intro")
	if len(rec.events) != 1 || rec.events[0].Type != EventHashChange {
		t.Fatalf("events = %+v", rec.events)
	}
	if got := mem.Location(); got != "/doc?x=1#intro" {
		t.Errorf("Location = %q", got)
	}
}

func TestDispose(t *testing.T) {
	b := NewBridge(NewMemory("/"), nil)
	var rec recorder
	dispose := b.OnNavigate(rec.listen)
	dispose()
	b.Navigate("/a")
	if len(rec.events) != 0 {
		t.Error("disposed listener received events")
	}
}

func TestEventTypeString(t *testing.T) {
	want := map[EventType]string{
		EventPopState:     "popstate",
		EventPushState:    "pushState",
		EventReplaceState: "replaceState",
		EventHashChange:   "hashchange",
		EventType(7):      "EventType(7)",
	}
	for typ, s := range want {
		if typ.String() != s {
			t.Errorf("%d.String() = %q, want %q", int(typ), typ.String(), s)
		}
	}
}
