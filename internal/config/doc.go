// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > YAML config >
// Environment variables > Defaults. It exposes strongly typed settings,
// including the growth-form catalog and the published benchmark figures, to
// the rest of the application.
package config
