// Package config loads, normalizes, and validates tuneport configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SPOTIFY_REFRESH_TOKEN and TUNEPORT_EXTRACTOR_TOKEN. The Config type
// centralizes every knob the daemon and CLI need: catalog credentials, the
// auto-add threshold, the download chain and the job fallback policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs, canonical log formats, and clear validation errors.
package config
