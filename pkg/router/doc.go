// Package router resolves URLs to routes.
//
// Routes are registered in a Registry in priority order. Resolution walks
// the registry in registration order and the first route whose pattern
// matches wins; there is no scoring. Register specific patterns before
// general ones and finish with a catch-all:
//
//	reg := router.NewRegistry()
//	reg.MustAdd(&router.Route{ID: "new-user", Pattern: "/users/new"})
//	reg.MustAdd(&router.Route{ID: "user", Pattern: "/users/:id"})
//	reg.MustAdd(&router.Route{ID: "not-found", Pattern: "/*"})
//
//	route, params, err := reg.Resolve("/users/42?tab=posts")
//	// route.ID == "user", params["id"] == "42"
//
// # Patterns
//
//	/about        static segment
//	/users/:id    one segment captured as "id"
//	/posts/:page? optional segment
//	/files/*path  rest of the path captured as "path" (may be empty)
//	/*            rest of the path captured as "*"
//
// # Route Modules
//
// A route's Page and Loading views live in a Module that is loaded lazily
// by a Loader. ModuleCache coalesces concurrent loads of the same route so
// a prefetch and a navigation never load a module twice, and populates the
// route exactly once.
package router
