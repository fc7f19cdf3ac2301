// Package services defines shared utilities consumed by the job workflow and
// the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, step names, worker slots, and
//     correlation identifiers for logging.
//   - Structured error markers (auth expired, rate limited, transport failure,
//     source unavailable) plus the Wrap helper that keeps classification
//     intact through errors.Is.
//   - UserMessage, which turns a classified failure into the text stored on a
//     job.
//
// Subpackages hold the HTTP clients for the download services.
package services
