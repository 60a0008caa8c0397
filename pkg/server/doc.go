// Package server is the HTTP host for firebolt applications.
//
// It performs the server render pass for every page request and serves
// the endpoints the client runtime talks to:
//
//	GET /*                  server-rendered document
//	GET /_firebolt/meta     page metadata as JSON (?url=...)
//	GET /_firebolt/reload   live-reload socket (development only)
//	GET /metrics            Prometheus metrics
//
// Files in the public directory are served ahead of page rendering.
package server
