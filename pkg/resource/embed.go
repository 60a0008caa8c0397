package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"
)

const (
	embedOpen  = `<script type="application/json" data-firebolt-resource="`
	embedClose = `</script>`
)

// embedSink serializes settled values into a render pass's insert stream.
type embedSink struct {
	mu      sync.Mutex
	w       io.Writer
	written map[string]bool
}

func (s *embedSink) write(key string, value any) error {
	script, err := EmbedScript(key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written[key] {
		return nil
	}
	if s.written == nil {
		s.written = make(map[string]bool)
	}
	s.written[key] = true
	_, err = io.WriteString(s.w, script)
	return err
}

// EmbedScript renders value as the script element a client cache seeds
// from. json.Marshal escapes '<', '>' and '&', so the payload cannot close
// the element early.
func EmbedScript(key string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("resource: encode %q: %w", key, err)
	}
	return embedOpen + html.EscapeString(key) + `">` + string(data) + embedClose, nil
}

// ParseEmbedded extracts every embedded resource from a document. Scripts
// whose payload is not valid JSON are reported as an error after the rest
// of the document has been read.
func ParseEmbedded(r io.Reader) (map[string]json.RawMessage, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage)
	var invalid []string
	rest := doc
	for {
		i := bytes.Index(rest, []byte(embedOpen))
		if i < 0 {
			break
		}
		rest = rest[i+len(embedOpen):]

		end := bytes.Index(rest, []byte(`">`))
		if end < 0 {
			break
		}
		key := html.UnescapeString(string(rest[:end]))
		rest = rest[end+2:]

		end = bytes.Index(rest, []byte(embedClose))
		if end < 0 {
			break
		}
		payload := bytes.TrimSpace(rest[:end])
		rest = rest[end+len(embedClose):]

		if !json.Valid(payload) {
			invalid = append(invalid, key)
			continue
		}
		out[key] = json.RawMessage(append([]byte(nil), payload...))
	}

	if len(invalid) > 0 {
		return out, fmt.Errorf("resource: invalid embedded data for %s", strings.Join(invalid, ", "))
	}
	return out, nil
}
