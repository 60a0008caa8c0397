// Package routepath normalizes navigation URLs before they reach the matcher.
//
// Browser locations, link hrefs and SSR request URLs all arrive in slightly
// different shapes. Clean reduces them to one canonical "path?query" form so
// that the navigation controller can compare the observed browser URL with
// the last committed URL by string equality.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Path errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrExternalURL          = errors.New("url points outside the application")
)

// Parts is a URL split into its components.
type Parts struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query without the leading "?".
	Query string

	// Fragment is the raw fragment without the leading "#".
	Fragment string
}

// String rebuilds "path?query" without the fragment. The fragment never
// takes part in route resolution.
func (p Parts) String() string {
	if p.Query == "" {
		return p.Path
	}
	return p.Path + "?" + p.Query
}

// Split separates path, query and fragment without canonicalizing.
func Split(input string) Parts {
	rest, fragment, _ := strings.Cut(input, "#")
	path, query, _ := strings.Cut(rest, "?")
	return Parts{Path: path, Query: query, Fragment: fragment}
}

// Clean canonicalizes a same-origin URL:
//   - ensures a leading slash
//   - collapses repeated slashes
//   - removes "." and resolves ".." segments
//   - drops a trailing slash (except for root)
//
// Backslashes, NUL bytes, malformed percent escapes and ".." escaping the
// root are rejected.
func Clean(input string) (Parts, error) {
	parts := Split(input)
	if parts.Path == "" {
		parts.Path = "/"
		return parts, nil
	}

	if strings.Contains(parts.Path, "\\") {
		return Parts{}, ErrBackslashInPath
	}
	if strings.Contains(parts.Path, "\x00") || strings.Contains(strings.ToUpper(parts.Path), "%00") {
		return Parts{}, ErrNullByteInPath
	}
	if strings.Contains(parts.Path, "%") {
		if err := validatePercentEscapes(parts.Path); err != nil {
			return Parts{}, err
		}
	}

	var out []string
	for _, seg := range strings.Split(parts.Path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return Parts{}, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	parts.Path = "/" + strings.Join(out, "/")
	return parts, nil
}

// Href validates a link target and returns its canonical form. Absolute and
// protocol-relative URLs are rejected unless their host equals origin.
func Href(href, origin string) (string, error) {
	if strings.HasPrefix(href, "//") ||
		strings.HasPrefix(href, "http://") ||
		strings.HasPrefix(href, "https://") {
		u, err := url.Parse(href)
		if err != nil {
			return "", ErrInvalidPath
		}
		if origin == "" || u.Host != origin {
			return "", ErrExternalURL
		}
		href = u.RequestURI()
		if u.Fragment != "" {
			href += "#" + u.Fragment
		}
	}
	if !strings.HasPrefix(href, "/") {
		return "", ErrInvalidPath
	}
	parts, err := Clean(href)
	if err != nil {
		return "", err
	}
	return parts.String(), nil
}

// DecodeSegment percent-decodes a single path segment.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	return decoded, nil
}

// Segments splits a canonical path into its raw segments.
// The root path has no segments.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
