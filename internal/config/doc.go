// Package config loads, normalizes, and validates podarchive configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PODARCHIVE_DOWNLOAD_DIR. The Config type centralizes every knob the CLI
// needs: the archive root, HTTP retry policy, feed snapshot toggles, and
// logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
