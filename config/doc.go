// Package config provides unified configuration loading for CoordFlow:
// defaults, YAML file, then environment variable overrides, in that
// priority order.
package config
