// Package api defines the wire-format types shared by the daemon HTTP server
// and the CLI. It translates jobs.Job records into the job status surface and
// carries a small HTTP client for talking to a running daemon.
//
// # Key Types
//
// JobStatus: the status surface of one job (jobId, status, progress, the
// resolved track, the download outcome, error and current step).
//
// DaemonStatus: daemon runtime information plus the workflow summary.
//
// SubmitJobRequest: the body of POST /api/jobs.
//
// # Design Notes
//
// DTOs use camelCase JSON tags and omit empty optional sections so consumers
// can test for presence. Timestamps are RFC3339 with milliseconds.
package api
