// Package logs provides offset-based log file tailing shared by the CLI
// and daemon diagnostics. It supports "last N lines" reads via negative
// offsets and bounded follow-mode waits for new lines.
package logs
