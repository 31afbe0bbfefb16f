// Package config loads service configuration from environment variables with
// an optional YAML file overlay, and validates the combined result.
//
// Environment variables use the HERALD_ prefix. A YAML file named by
// HERALD_CONFIG_FILE is applied first; environment variables win.
package config
