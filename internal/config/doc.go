// Package config loads, normalizes, and validates octpack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OCTPACK_HOB_BASE_URL. A .env file in the working directory is read before
// the environment is consulted, without overriding variables that are
// already set. The Config type centralizes every knob the CLI needs so the
// git cache, remote catalog client, reconciler, and packager are configured
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
