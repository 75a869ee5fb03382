// Package preflight runs startup environment checks: backend reachability,
// directory permissions, and free disk space. Failed checks are reported
// and logged but never stop the daemon; degraded operation beats refusing
// to start.
package preflight
