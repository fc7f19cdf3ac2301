// Package logs reads the daemon's JSON log file for `tuneport logs`.
//
// Last returns the final N lines with bounded memory, Follow polls for
// appended lines from an offset, and Filter narrows records to a job or a
// minimum level. Callers supply a context so follow mode stops cleanly when
// the CLI exits.
package logs
