// Package download acquires a playable audio asset for a job.
//
// Sources are tried by Chain in a fixed order until one succeeds:
//
//  1. LosslessSource queries the lossless search service per streaming
//     source and only trusts hits that pass a strict title/artist gate.
//  2. ExtractorSource asks the primary extractor, retrying the same
//     instance with exponential backoff on auth or rate-limit replies.
//  3. MirrorPool walks the configured extractor mirrors once each.
//  4. LocalSource runs yt-dlp on this machine when enabled.
//
// Every attempt returns a Result; a Chain run returns the winning Result or
// an aggregate failure carrying the most specific last error. The package
// also owns segment parsing (tracklists from descriptions or manual input),
// quality labels and file naming.
package download
