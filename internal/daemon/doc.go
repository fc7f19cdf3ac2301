// Package daemon hosts the long-running tuneport process: it holds the
// single-instance lock, owns the workflow manager and serves the HTTP API
// used by the CLI.
package daemon
