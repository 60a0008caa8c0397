// Package compile is the build, watch and serve pipeline behind the
// firebolt CLI.
//
// Build compiles the application's main package into the output
// directory and copies the public directory next to it. Dev builds,
// runs the binary, and rebuilds and restarts it whenever a watched file
// changes. Start runs a previously built binary. Publish uploads the
// build output to an S3 bucket.
package compile
