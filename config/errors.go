package config

import "errors"

var (
	// ErrMissingEnv is returned when the file references unset variables.
	ErrMissingEnv = errors.New("config: missing environment variables")

	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")

	// ErrNotFound is returned when an explicitly named file does not exist.
	ErrNotFound = errors.New("config: file not found")
)
