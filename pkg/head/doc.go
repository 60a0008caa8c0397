// Package head keeps the document head in sync across server and client
// renders.
//
// Pages contribute ordered lists of [Tag] values. A [Manager] collects the
// contributions of every mounted page and [Merge] flattens them into one
// set: keyed tags replace earlier tags with the same key in place, keyless
// tags are always appended.
//
// On the server the merged set is rendered once, after the page body has
// been rendered:
//
//	h := &head.Head{Static: []head.Tag{head.Charset("utf-8")}}
//	html := h.RenderServer(manager)
//
// On the client the first render reuses the server markup verbatim, which
// a [HydrationFlag] detects. Later renders go through a [Synchronizer] that
// pushes [Patch] values into the live document head.
package head
