// Package notifications publishes pack results to ntfy.
//
// An empty topic yields a no-op service so callers never branch on whether
// notifications are configured.
package notifications
