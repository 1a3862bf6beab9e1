// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > YAML config >
// Environment variables > Defaults. It covers the HTTP server, the cabinet's inner
// dimensions, the autosave cadence and the snapshot storage backend.
package config
