// Package config loads, normalizes, and validates cpsnap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CPSNAP_ALGORITHM. The Config type centralizes every knob the CLI, the
// snapshotter, and the watcher need so they all see the same sanitized
// values and clear validation errors.
package config
