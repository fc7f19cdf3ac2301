// Package workflow drives jobs from queued to completed.
//
// Engine owns the per-job procedure: resolve the source metadata, search the
// catalog, apply the fallback policy, add the match to the playlist (skipping
// duplicates) and optionally run the download chain. Every step persists the
// whole job record through the store so status readers always see a
// consistent snapshot.
//
// Manager runs a fixed pool of workers that claim queued jobs, and exposes the
// submit, confirm and reject actions used by the daemon API. Jobs parked in
// awaiting_fallback are resumed only through Confirm or Reject.
package workflow
