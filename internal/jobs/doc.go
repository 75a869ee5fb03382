// Package jobs holds the video job and task model together with the Store
// that owns all job state.
//
// A Job is the parent unit of work for one video; its ordered Tasks are the
// individual backend operations (download, import, aspect-ratio fix, audio
// normalization, transcription, AI analysis). Job status and progress are
// always derived from the tasks, never stored independently.
//
// The Store is the single mutual-exclusion boundary for job state: the
// submission pipeline and the event aggregator both mutate through it, every
// mutation is mirrored best-effort into the SQLite cache for crash recovery,
// and observers receive coalesced snapshots through the Watcher.
//
// Treat this package as the single source of truth for job semantics; when
// you add task types or fields, update cache.go and bump schemaVersion.
package jobs
