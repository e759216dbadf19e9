// Package config loads the service configuration. Precedence is defaults,
// then an optional YAML file, then RHASIM_* environment variables.
package config
