// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > YAML config >
// Environment variables > Defaults. Besides the HTTP settings it selects the
// persistence backend (in-memory, PostgreSQL or SQLite) and the seed file.
package config
