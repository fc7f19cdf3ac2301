// Command tuneport is the command-line client for the tuneport daemon.
//
// Job commands talk to the daemon HTTP API configured by paths.api_bind.
// Read-only commands ("status", "jobs list", "jobs show") fall back to the
// job database when the daemon is not running. "match", "segments parse" and
// "logs" work without a daemon.
package main
