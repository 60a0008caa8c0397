// Package render is the rendering layer the resource cache suspends into.
//
// A [Fragment] is the output of rendering a subtree: markup, a pending
// marker carrying a ready channel, or a failure. A [Boundary] handles the
// non-markup cases. On the server it waits for pending fragments and
// renders again; on the client it shows a fallback and schedules a retry
// when the pending dependency settles.
//
// [Document] renders a full page: the body first, so page head
// contributions are known, then the head, the body and the inserts that
// carry embedded resource data.
package render
