// Package history turns programmatic navigation into observable events.
//
// Browsers report back/forward navigation through popstate and hashchange
// events, but a pushState or replaceState call is silent. A [Bridge] sits
// in front of a [Platform] so every push or replace also emits an [Event],
// and the navigation controller can treat both kinds of navigation the
// same way.
//
// [Memory] is an in-process platform with a history stack, used by tests
// and by headless sessions.
package history
