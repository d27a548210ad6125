// Package config loads the device controller configuration from YAML.
package config

import "errors"

var (
	ErrReadConfig    = errors.New("failed to read config file")
	ErrParseConfig   = errors.New("failed to parse config")
	ErrInvalidConfig = errors.New("invalid config")
)
