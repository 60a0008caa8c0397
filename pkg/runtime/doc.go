// Package runtime is the session-scoped runtime handle.
//
// A [Session] owns everything one render context shares: the resource
// cache, the head manager and hydration flag, the history bridge and the
// metadata store. The route registry and module cache are process-wide and
// passed in, so many sessions can share them.
//
// A server session is created per request with [WithSSR]. It renders the
// document once, embedding every resolved resource. A client session
// hydrates from that document with [NewClient] and then follows the
// navigation controller.
package runtime
