// Package logging assembles structured slog loggers and formatting helpers used
// across tuneport.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so workflow code can tag log
// lines with job IDs, steps, and correlation IDs. The daemon logger tees
// console output into a JSON log file under the configured log directory.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
