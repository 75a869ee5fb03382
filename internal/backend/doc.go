// Package backend talks to the external video processing service.
//
// The Client interface covers the submission endpoints (one per task kind)
// and the authoritative queue snapshot used for startup reconciliation.
// Progress flows back over a Bus: three event kinds (progress, failure,
// status change) correlated solely by the backend-assigned job id. The
// wire transport is intentionally thin; the orchestration core treats the
// backend as opaque and only depends on these interfaces.
package backend
