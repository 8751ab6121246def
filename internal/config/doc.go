// Package config loads, normalizes, and validates danmu configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment overrides such as DANMU_MERGE_GROUPS. The Config type
// centralizes every knob the engine, provider adapters, HTTP server, and CLI
// need, and is resolved once at startup into an immutable value.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, parsed merge groups, and clear validation errors.
package config
