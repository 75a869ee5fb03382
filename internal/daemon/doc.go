// Package daemon assembles the orchestration core: job store and cache,
// backend client, submission pipeline, event aggregation, and startup
// reconciliation, guarded by a single-instance file lock.
package daemon
