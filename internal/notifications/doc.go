// Package notifications delivers run-level events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled, so callers never branch on whether notifications are enabled.
//
// Extend this package if you need alternative transports; run code depends
// only on the simple Service interface.
package notifications
