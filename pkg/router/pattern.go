package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/firebolt/pkg/routepath"
)

// ErrInvalidPattern is returned by Compile for malformed patterns.
var ErrInvalidPattern = errors.New("router: invalid pattern")

type tokenKind int

const (
	tokenStatic tokenKind = iota
	tokenParam
	tokenRest
)

type token struct {
	kind     tokenKind
	value    string // static text or parameter name
	optional bool
}

// Pattern is a compiled route pattern.
type Pattern struct {
	source string
	tokens []token
}

// Params are parameters extracted from a matched URL.
type Params map[string]string

// Compile parses a route pattern.
func Compile(pattern string) (*Pattern, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, pattern)
	}

	p := &Pattern{source: pattern}
	segments := routepath.Segments(pattern)
	seen := make(map[string]bool)

	for i, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "*"):
			if i != len(segments)-1 {
				return nil, fmt.Errorf("%w: %q has segments after the wildcard", ErrInvalidPattern, pattern)
			}
			name := seg[1:]
			if name == "" {
				name = "*"
			}
			p.tokens = append(p.tokens, token{kind: tokenRest, value: name})
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			optional := strings.HasSuffix(name, "?")
			name = strings.TrimSuffix(name, "?")
			if name == "" {
				return nil, fmt.Errorf("%w: %q has an unnamed parameter", ErrInvalidPattern, pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: %q repeats parameter %q", ErrInvalidPattern, pattern, name)
			}
			seen[name] = true
			p.tokens = append(p.tokens, token{kind: tokenParam, value: name, optional: optional})
		default:
			p.tokens = append(p.tokens, token{kind: tokenStatic, value: seg})
		}
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source pattern.
func (p *Pattern) String() string {
	return p.source
}

// Match reports whether the path component of url matches the pattern and
// returns the decoded parameters. Params is nil when there is no match.
func (p *Pattern) Match(url string) (bool, Params) {
	parts, err := routepath.Clean(url)
	if err != nil {
		return false, nil
	}

	raw := routepath.Segments(parts.Path)
	segments := make([]string, len(raw))
	for i, s := range raw {
		decoded, err := routepath.DecodeSegment(s)
		if err != nil {
			return false, nil
		}
		segments[i] = decoded
	}

	params := make(Params)
	if !matchTokens(p.tokens, segments, params) {
		return false, nil
	}
	return true, params
}

func matchTokens(tokens []token, segments []string, params Params) bool {
	if len(tokens) == 0 {
		return len(segments) == 0
	}

	t := tokens[0]
	switch t.kind {
	case tokenStatic:
		if len(segments) == 0 || segments[0] != t.value {
			return false
		}
		return matchTokens(tokens[1:], segments[1:], params)

	case tokenParam:
		if len(segments) > 0 {
			params[t.value] = segments[0]
			if matchTokens(tokens[1:], segments[1:], params) {
				return true
			}
			delete(params, t.value)
		}
		// An optional parameter may also match nothing.
		return t.optional && matchTokens(tokens[1:], segments, params)

	case tokenRest:
		params[t.value] = strings.Join(segments, "/")
		return true
	}
	return false
}

// Match compiles pattern and matches it against url. An invalid pattern
// never matches.
func Match(pattern, url string) (bool, Params) {
	p, err := Compile(pattern)
	if err != nil {
		return false, nil
	}
	return p.Match(url)
}
