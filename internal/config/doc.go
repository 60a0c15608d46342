// Package config loads, parses and validates the service configuration from
// environment variables (FRACTAL_ prefix) and an optional config.yaml. Defaults
// allow the service to start with an in-memory store and no external services.
package config
