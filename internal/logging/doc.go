// Package logging assembles the structured slog loggers used across Clippy.
//
// It centralizes level and output plumbing, standardizes field keys so job
// and task identifiers look the same in every log line, and provides a
// no-op logger for tests and wiring code that cannot fail. The
// ProgressSampler keeps high-frequency backend progress events from
// flooding the logs.
package logging
