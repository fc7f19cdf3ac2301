// Package preflight provides readiness checks for the directories, catalog
// credentials and download backends tuneport depends on.
//
// The daemon logs a RunAll snapshot at startup, and "tuneport preflight"
// renders the same results as a table. Checks for disabled features are
// skipped.
package preflight
