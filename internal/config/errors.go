package config

import "errors"

// ErrInvalid marks a configuration that parsed but failed validation.
var ErrInvalid = errors.New("invalid config")
