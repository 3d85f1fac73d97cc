// Package config loads, normalizes, and validates playsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and the sync runner need: library and ledger locations, playlist
// sources, external tool paths, acquisition concurrency and retry tunables,
// and logging/notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
