// Package config loads, normalizes, and validates oslomc configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI needs: ensemble size and method, unfolding iterations, artifact and
// log directories, and log output settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical method names, and clear validation errors.
package config
