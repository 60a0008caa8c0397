package head

import "strings"

// Merge flattens sets in order. A keyed tag replaces an earlier tag with the
// same key at the earlier tag's position; keyless tags are appended.
func Merge(sets ...[]Tag) []Tag {
	var out []Tag
	index := make(map[string]int)

	for _, set := range sets {
		for _, tag := range set {
			if !tag.Keyed() {
				out = append(out, tag)
				continue
			}
			if i, ok := index[tag.Key]; ok {
				out[i] = tag
				continue
			}
			index[tag.Key] = len(out)
			out = append(out, tag)
		}
	}
	return out
}

// Render concatenates the markup of tags.
func Render(tags []Tag) string {
	var b strings.Builder
	for _, tag := range tags {
		b.WriteString(tag.Content)
	}
	return b.String()
}
