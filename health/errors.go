package health

import "errors"

var (
	// ErrCheckTimeout is reported for a check that outlived the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned by Aggregator.Check for an unknown name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNilChecker is returned when registering a nil checker.
	ErrNilChecker = errors.New("health: checker is nil")
)
