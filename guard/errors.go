package guard

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrDenied is matched by every *DenyError.
	ErrDenied = errors.New("guard: request denied")

	// ErrInvalidPattern is returned for a pattern that cannot be compiled.
	ErrInvalidPattern = errors.New("guard: invalid pattern")

	// ErrInvalidServiceName is returned for a service name that cannot be
	// turned into a path pattern.
	ErrInvalidServiceName = errors.New("guard: invalid service name")
)

// DenyError reports a request refused by policy. It is never retryable.
type DenyError struct {
	Method string
	Path   string

	// Rule names the rule that denied the request.
	Rule string
}

// Error returns the error message.
func (e *DenyError) Error() string {
	return fmt.Sprintf("request denied: method=%s path=%q rule=%s", e.Method, e.Path, e.Rule)
}

// Is reports whether target is ErrDenied.
func (e *DenyError) Is(target error) bool {
	return target == ErrDenied
}
