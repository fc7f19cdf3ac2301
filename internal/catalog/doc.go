// Package catalog talks to the Spotify Web API.
//
// Client covers the hot path used by every job: track search, playlist
// page reads for duplicate detection, and adding a track at the top of a
// playlist. It retries throttled requests using the Retry-After header and
// classifies failures with the markers from internal/services so callers can
// tell expired credentials apart from transport trouble.
//
// Library wraps github.com/zmb3/spotify/v2 for the occasional account-level
// operations (listing and creating playlists) surfaced by the CLI and API.
//
// Credentials come from configuration as a refresh token that
// NewTokenSource exchanges through golang.org/x/oauth2, or as a static
// access token for short-lived testing.
package catalog
