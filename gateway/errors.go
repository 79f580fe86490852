package gateway

import "errors"

var (
	// ErrNilConfig is returned when New is called without a configuration.
	ErrNilConfig = errors.New("gateway: config is nil")

	// ErrInvalidUpstream is returned for an upstream URL that cannot be proxied to.
	ErrInvalidUpstream = errors.New("gateway: invalid upstream")
)
