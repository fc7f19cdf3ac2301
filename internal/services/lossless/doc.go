// Package lossless is the HTTP client for the lossless search service, which
// looks a track up on one streaming source (qobuz, tidal, deezer) and
// returns a download URL when it holds a copy.
//
// The client only speaks the protocol; deciding whether a hit is close
// enough to trust lives in internal/download.
package lossless
