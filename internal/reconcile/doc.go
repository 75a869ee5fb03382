// Package reconcile restores consistency between the local job cache and
// the backend queue after a restart. It only prunes: terminal local jobs
// the backend has forgotten are dropped, everything else is left for the
// event stream to resolve.
package reconcile
