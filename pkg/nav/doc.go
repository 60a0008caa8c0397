// Package nav is the navigation controller.
//
// A [Controller] listens to a navigation adapter (the history bridge),
// tracks the latest browser URL and the last committed one, and drives
// each URL change through route resolution, module loading and metadata
// fetching before committing a new [router.Location].
//
// All controller state is owned by a single event loop started with Run.
// Loads run on their own goroutines and post their continuation back to
// the loop. Each resolution carries a token; a newer URL change marks the
// previous token cancelled, and a continuation whose token is cancelled
// does nothing. The work itself is not interrupted.
//
// States:
//
//	Idle       browser URL equals the committed URL
//	Resolving  a resolution is in flight
//	Committed  a resolution committed; the controller is idle again
//	Cancelled  a resolution was superseded by a newer URL change
package nav
