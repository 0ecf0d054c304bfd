package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps read and parse failures of the env file, YAML file or environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrMissingSecret names the X credentials that live publishing still lacks.
	ErrMissingSecret = errors.New("missing credentials")
)
