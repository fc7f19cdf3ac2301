// Package extractor is the HTTP client for the audio extractor service: a
// yt-dlp wrapper that accepts a source URL (optionally cut into segments)
// and answers with a temporary download URL.
//
// The same client serves the primary instance and every mirror; the
// download chain decides which instances to try and in what order.
package extractor
