package routepath

import (
	"errors"
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Parts
	}{
		{name: "empty", input: "", want: Parts{Path: "/"}},
		{name: "root", input: "/", want: Parts{Path: "/"}},
		{name: "simple", input: "/about", want: Parts{Path: "/about"}},
		{name: "trailing slash", input: "/about/", want: Parts{Path: "/about"}},
		{name: "double slash", input: "/blog//post", want: Parts{Path: "/blog/post"}},
		{name: "dot", input: "/blog/./post", want: Parts{Path: "/blog/post"}},
		{name: "dot dot", input: "/blog/posts/../other", want: Parts{Path: "/blog/other"}},
		{name: "missing leading slash", input: "about", want: Parts{Path: "/about"}},
		{name: "query kept", input: "/search/?q=a//b", want: Parts{Path: "/search", Query: "q=a//b"}},
		{name: "fragment kept", input: "/docs#intro", want: Parts{Path: "/docs", Fragment: "intro"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Clean(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{`/a\b`, ErrBackslashInPath},
		{"/a%00b", ErrNullByteInPath},
		{"/a%GG", ErrInvalidPercentEscape},
		{"/a%2", ErrInvalidPercentEscape},
		{"/../secret", ErrPathEscapesRoot},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if _, err := Clean(tt.input); !errors.Is(err, tt.want) {
				t.Errorf("Clean(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestPartsString(t *testing.T) {
	if got := (Parts{Path: "/a", Query: "x=1", Fragment: "f"}).String(); got != "/a?x=1" {
		t.Errorf("String() = %q", got)
	}
	if got := (Parts{Path: "/a"}).String(); got != "/a" {
		t.Errorf("String() = %q", got)
	}
}

func TestHref(t *testing.T) {
	tests := []struct {
		href    string
		origin  string
		want    string
		wantErr error
	}{
		{href: "/users/1/", want: "/users/1"},
		{href: "/search?q=go", want: "/search?q=go"},
		{href: "https://app.test/users?id=2", origin: "app.test", want: "/users?id=2"},
		{href: "https://evil.test/", origin: "app.test", wantErr: ErrExternalURL},
		{href: "//evil.test/x", wantErr: ErrExternalURL},
		{href: "users", wantErr: ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, err := Href(tt.href, tt.origin)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Href(%q) error = %v, want %v", tt.href, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Href(%q) error = %v", tt.href, err)
			}
			if got != tt.want {
				t.Errorf("Href(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	if got := Segments("/"); got != nil {
		t.Errorf("Segments(/) = %v", got)
	}
	if got := Segments("/a/b"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Segments(/a/b) = %v", got)
	}
}

func TestDecodeSegment(t *testing.T) {
	got, err := DecodeSegment("hello%20world")
	if err != nil || got != "hello world" {
		t.Errorf("DecodeSegment = %q, %v", got, err)
	}
	if _, err := DecodeSegment("%zz"); !errors.Is(err, ErrInvalidPercentEscape) {
		t.Errorf("DecodeSegment error = %v", err)
	}
}
