package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
)

func waitEntry(t *testing.T, e *Entry) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("entry %q did not settle", e.Key())
	}
}

func TestGetOrCreateSingleFlight(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const n = 20
	entries := make([]*Entry, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = c.GetOrCreate(context.Background(), "k", compute)
		}(i)
	}
	wg.Wait()

	for _, e := range entries {
		if e != entries[0] {
			t.Fatal("concurrent accesses observed different entries")
		}
		if e.Status() != StatusPending {
			t.Fatalf("status = %v before release, want pending", e.Status())
		}
	}

	close(release)
	waitEntry(t, entries[0])

	for _, e := range entries {
		v, err := e.Value()
		if err != nil || v != "value" {
			t.Errorf("Value() = %v, %v", v, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times, want 1", got)
	}
}

func TestSuccessIsIdempotent(t *testing.T) {
	c := New()
	var calls atomic.Int32
	compute := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return 42, nil
	}

	waitEntry(t, c.GetOrCreate(context.Background(), "answer", compute))
	for i := 0; i < 5; i++ {
		e := c.GetOrCreate(context.Background(), "answer", compute)
		if e.Status() != StatusSuccess {
			t.Fatalf("status = %v, want success", e.Status())
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times, want 1", got)
	}
}

func TestErrorResurfaces(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	var calls atomic.Int32
	compute := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	e := c.GetOrCreate(context.Background(), "bad", compute)
	waitEntry(t, e)

	for i := 0; i < 3; i++ {
		_, err := c.GetOrCreate(context.Background(), "bad", compute).Value()
		if !errors.Is(err, boom) {
			t.Fatalf("error = %v, want boom", err)
		}
		if ferrors.Code(err) != "E004" {
			t.Errorf("code = %q, want E004", ferrors.Code(err))
		}
	}
	if calls.Load() != 1 {
		t.Errorf("compute ran %d times after failure, want 1", calls.Load())
	}
}

func TestComputePanicBecomesError(t *testing.T) {
	c := New()
	e := c.GetOrCreate(context.Background(), "panic", func(ctx context.Context) (any, error) {
		panic("kaboom")
	})
	waitEntry(t, e)
	if _, err := e.Value(); err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error = %v", err)
	}
}

func TestComputeOutlivesCallerContext(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	e := c.GetOrCreate(ctx, "k", func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "done", ctx.Err()
	})
	<-started
	cancel()
	close(release)
	waitEntry(t, e)

	if v, err := e.Value(); err != nil || v != "done" {
		t.Errorf("Value() = %v, %v", v, err)
	}
}

func TestSetAndGet(t *testing.T) {
	c := New()
	if _, ok := c.Get("x"); ok {
		t.Fatal("Get on empty cache should miss")
	}

	c.Set("x", "one")
	e, ok := c.Get("x")
	if !ok || e.Status() != StatusSuccess {
		t.Fatalf("Set entry = %v, %v", e, ok)
	}

	release := make(chan struct{})
	pending := c.GetOrCreate(context.Background(), "y", func(ctx context.Context) (any, error) {
		<-release
		return "computed", nil
	})
	c.Set("y", "set")
	waitEntry(t, pending)
	close(release)

	if v, _ := pending.Value(); v != "set" {
		t.Errorf("pending entry value = %v, want set", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
	if got := c.Keys(); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("Keys = %v", got)
	}
}

func TestWait(t *testing.T) {
	c := New()
	release := make(chan struct{})
	c.GetOrCreate(context.Background(), "slow", func(ctx context.Context) (any, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want deadline", err)
	}

	close(release)
	if err := c.Wait(context.Background()); err != nil {
		t.Errorf("Wait error = %v", err)
	}
}

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestUse(t *testing.T) {
	c := New()
	release := make(chan struct{})
	fetch := func(ctx context.Context) (user, error) {
		<-release
		return user{Name: "ada", Age: 36}, nil
	}

	res := Use(context.Background(), c, Key("user", 1), fetch)
	if !res.Pending() {
		t.Fatalf("status = %v, want pending", res.Status)
	}
	close(release)
	select {
	case <-res.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("result never became ready")
	}

	res = Use(context.Background(), c, Key("user", 1), fetch)
	if res.Status != StatusSuccess || res.Value.Name != "ada" {
		t.Errorf("result = %+v", res)
	}
	select {
	case <-res.Ready():
	default:
		t.Error("settled result should be ready")
	}
}

func TestUseTypeMismatch(t *testing.T) {
	c := New()
	c.Set("n", 5)
	res := Read[string](mustGet(t, c, "n"))
	if res.Status != StatusError || ferrors.Code(res.Err) != "E006" {
		t.Errorf("result = %+v, want E006 error", res)
	}
}

func mustGet(t *testing.T, c *Cache, key string) *Entry {
	t.Helper()
	e, ok := c.Get(key)
	if !ok {
		t.Fatalf("no entry for %q", key)
	}
	return e
}

func TestServerEmbedsAndClientSeeds(t *testing.T) {
	var sink bytes.Buffer
	server := New(WithEmbed(&sink))
	key := Key("user", 7)

	res := Use(context.Background(), server, key, func(ctx context.Context) (user, error) {
		return user{Name: "</script><b>", Age: 7}, nil
	})
	<-res.Ready()
	// A second access is a hit and writes nothing more.
	Use(context.Background(), server, key, func(ctx context.Context) (user, error) {
		return user{}, nil
	})

	doc := sink.String()
	if strings.Count(doc, "data-firebolt-resource") != 1 {
		t.Fatalf("embedded %d times, want once: %s", strings.Count(doc, "data-firebolt-resource"), doc)
	}
	if strings.Contains(doc, "</script><b>") {
		t.Fatal("payload was not escaped")
	}

	data, err := ParseEmbedded(strings.NewReader("<html><body>" + doc + "</body></html>"))
	if err != nil {
		t.Fatal(err)
	}

	client := New()
	if n := client.Seed(data); n != 1 {
		t.Fatalf("Seed added %d, want 1", n)
	}

	var calls atomic.Int32
	got := Use(context.Background(), client, key, func(ctx context.Context) (user, error) {
		calls.Add(1)
		return user{}, nil
	})
	if got.Status != StatusSuccess {
		t.Fatalf("seeded status = %v", got.Status)
	}
	if got.Value.Name != "</script><b>" || got.Value.Age != 7 {
		t.Errorf("seeded value = %+v", got.Value)
	}
	if calls.Load() != 0 {
		t.Error("client recomputed a seeded key")
	}
	if !mustGet(t, client, key).Seeded() {
		t.Error("entry should report seeded")
	}
}

func TestSeedKeepsExisting(t *testing.T) {
	c := New()
	c.Set("a", "local")
	n := c.Seed(map[string]json.RawMessage{"a": json.RawMessage(`"remote"`), "b": json.RawMessage(`1`)})
	if n != 1 {
		t.Errorf("Seed added %d, want 1", n)
	}
	if v, _ := mustGet(t, c, "a").Value(); v != "local" {
		t.Errorf("a = %v, want local", v)
	}
}

func TestSeededDecodeFailure(t *testing.T) {
	c := New()
	c.Seed(map[string]json.RawMessage{"u": json.RawMessage(`"not a user"`)})
	res := Read[user](mustGet(t, c, "u"))
	if res.Status != StatusError || ferrors.Code(res.Err) != "E006" {
		t.Errorf("result = %+v, want E006", res)
	}
}

func TestParseEmbeddedInvalid(t *testing.T) {
	doc := embedOpen + `good">{"a":1}` + embedClose + embedOpen + `bad">{nope` + embedClose
	data, err := ParseEmbedded(strings.NewReader(doc))
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Errorf("error = %v, want invalid data for bad", err)
	}
	if string(data["good"]) != `{"a":1}` {
		t.Errorf("good = %s", data["good"])
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"user", nil, "user"},
		{"user", []any{1, "a", true}, "user|1|a|true"},
		{"list", []any{map[string]int{"b": 2, "a": 1}}, `list|{"a":1,"b":2}`},
		{"f", []any{1.5, nil}, "f|1.5|null"},
		{"d", []any{time.Second}, "d|1s"},
	}
	for _, tt := range tests {
		if got := Key(tt.name, tt.args...); got != tt.want {
			t.Errorf("Key(%q, %v) = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	if StatusPending.String() != "pending" || StatusSuccess.String() != "success" ||
		StatusError.String() != "error" || Status(9).String() != "unknown" {
		t.Error("unexpected status names")
	}
}
