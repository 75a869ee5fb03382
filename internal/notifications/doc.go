// Package notifications sends optional ntfy push notifications for job
// terminal states. With no topic configured the service is a noop, so
// callers never need to guard their notify calls.
package notifications
