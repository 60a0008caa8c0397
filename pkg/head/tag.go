package head

import "strings"

// Tag is a single head element. Key is an optional identity; tags sharing
// a key collapse into one during Merge. Content is the rendered markup.
type Tag struct {
	Key     string `json:"key,omitempty"`
	Content string `json:"content"`
}

// Keyed reports whether the tag has a key.
func (t Tag) Keyed() bool {
	return t.Key != ""
}

// WithKey returns a copy of t with the given key.
func (t Tag) WithKey(key string) Tag {
	t.Key = key
	return t
}

// Title returns the <title> tag. There is only ever one title.
func Title(text string) Tag {
	return Tag{Key: "title", Content: "<title>" + escapeText(text) + "</title>"}
}

// Charset returns the <meta charset> tag.
func Charset(charset string) Tag {
	return Tag{Key: "charset", Content: `<meta charset="` + escapeAttr(charset) + `">`}
}

// Meta returns a <meta name content> tag keyed by name.
func Meta(name, content string) Tag {
	return Tag{
		Key:     "meta:" + name,
		Content: `<meta name="` + escapeAttr(name) + `" content="` + escapeAttr(content) + `">`,
	}
}

// Property returns a <meta property content> tag keyed by property, as used
// by Open Graph.
func Property(property, content string) Tag {
	return Tag{
		Key:     "property:" + property,
		Content: `<meta property="` + escapeAttr(property) + `" content="` + escapeAttr(content) + `">`,
	}
}

// Canonical returns the canonical <link>. There is only ever one.
func Canonical(href string) Tag {
	return Tag{Key: "link:canonical", Content: `<link rel="canonical" href="` + escapeAttr(href) + `">`}
}

// Link returns a keyless <link rel href> tag.
func Link(rel, href string) Tag {
	return Tag{Content: `<link rel="` + escapeAttr(rel) + `" href="` + escapeAttr(href) + `">`}
}

// Style returns a keyless <style> tag. css is emitted as is.
func Style(css string) Tag {
	return Tag{Content: "<style>" + css + "</style>"}
}

// Script returns a keyless external <script> tag.
func Script(src string) Tag {
	return Tag{Content: `<script src="` + escapeAttr(src) + `" defer></script>`}
}

// Raw returns a tag with caller-provided markup.
func Raw(key, html string) Tag {
	return Tag{Key: key, Content: html}
}

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
