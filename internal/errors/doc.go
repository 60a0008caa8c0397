// Package errors provides structured, actionable error messages for Firebolt.
//
// Every error carries a code that maps to a registered template with a
// short message, a category and a longer explanation. Runtime packages wrap
// their sentinel errors in a FireboltError at the boundary where the error
// is reported (navigation logs, resource failure boundaries, CLI output).
//
// # Error Categories
//
//   - navigation: route matching and route/metadata loading
//   - resource: resource cache computations and seeded values
//   - hydration: server/client divergence
//   - config: project configuration
//   - cli: build, watch and serve pipeline
//
// # Usage
//
//	err := errors.New("E002").
//	    WithDetail("route /users/:id failed to load").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E002: Route module failed to load
//	//
//	//   route /users/:id failed to load
//	//
//	//   Cause: connection reset
package errors
