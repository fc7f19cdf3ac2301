// Package jobs persists track jobs in SQLite and owns their state graph.
//
// A Job moves queued → searching → (awaiting_fallback) → adding →
// (downloading) → completed, with failed reachable from every non-terminal
// state. The Store reads and replaces whole records and refuses updates that
// would break the graph, so the workflow engine is the only writer of job
// progress while API callers read by id.
//
// The database holds in-flight and recent jobs rather than an archive.
// Housekeeping (ClearCompleted, ClearFailed, Remove) evicts terminal jobs.
// Schema changes bump schemaVersion; users delete the database to adopt them.
package jobs
