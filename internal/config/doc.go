// Package config loads, normalizes, and validates colorrec configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COLORREC_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// CLI need, from the camera device and target color range to output naming
// and detection store placement.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, parsed color bounds, canonical log formats, and clear
// validation errors.
package config
