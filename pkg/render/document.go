package render

import (
	"bufio"
	"context"
	"html"
	"io"
	"strings"

	"github.com/vango-dev/firebolt/pkg/head"
)

// RootID is the id of the element the page body renders into.
const RootID = "firebolt-root"

// Document renders complete pages.
type Document struct {
	// Lang is the html lang attribute. Defaults to "en".
	Lang string

	// Head is the document-level head.
	Head *head.Head

	// Manager holds page head contributions for this render.
	Manager *head.Manager

	// Boundary is the root suspense boundary.
	Boundary Boundary

	// Inserts is called after the body has rendered and returns the markup
	// emitted after it, such as embedded resource data.
	Inserts func() string

	// Scripts are client entry points, written last.
	Scripts []string
}

// Render writes the page. body is rendered to completion before anything
// is written, so a failed render writes nothing.
func (d *Document) Render(ctx context.Context, w io.Writer, body func() Fragment) error {
	bodyHTML, err := d.Boundary.Server(ctx, body)
	if err != nil {
		return err
	}

	lang := d.Lang
	if lang == "" {
		lang = "en"
	}
	h := d.Head
	if h == nil {
		h = &head.Head{}
	}
	m := d.Manager
	if m == nil {
		m = head.NewManager()
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("<!DOCTYPE html>\n")
	bw.WriteString(`<html lang="` + html.EscapeString(lang) + `">`)
	bw.WriteString("<head>")
	bw.WriteString(h.RenderServer(m))
	bw.WriteString("</head>")
	bw.WriteString(`<body><div id="` + RootID + `">`)
	bw.WriteString(bodyHTML)
	bw.WriteString("</div>")
	if d.Inserts != nil {
		bw.WriteString(d.Inserts())
	}
	for _, src := range d.Scripts {
		bw.WriteString(`<script type="module" src="` + html.EscapeString(src) + `"></script>`)
	}
	bw.WriteString("</body></html>\n")
	return bw.Flush()
}

// HeadHTML extracts the inner markup of the first <head> element of a
// rendered document. The client uses it as the server head on hydration.
func HeadHTML(document string) string {
	const openTag, closeTag = "<head>", "</head>"
	start := strings.Index(document, openTag)
	if start < 0 {
		return ""
	}
	start += len(openTag)
	end := strings.Index(document[start:], closeTag)
	if end < 0 {
		return ""
	}
	return document[start : start+end]
}
