// Package ipc implements the JSON-RPC control surface between the clippy
// CLI and the daemon. Requests travel over a Unix domain socket; the
// server translates them into job store and pipeline operations.
package ipc
