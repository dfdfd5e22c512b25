// Package config loads, normalizes, and validates clipper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for
// provider API keys. The Config type centralizes every knob the CLI and the
// pipeline controllers need: ledger location, worker counts, external tool
// binaries, provider endpoints, and the contradiction storage threshold.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
