// Command clippy is the control CLI for the clippy daemon. It talks to the
// daemon over the Unix socket exposed by the ipc package.
package main
