package schema

import "errors"

var (
	// ErrEmptyCommand indicates the submitted command was empty after trimming.
	ErrEmptyCommand = errors.New("empty command")
	// ErrRunnerClosed indicates the runner has been shut down.
	ErrRunnerClosed = errors.New("runner closed")
	// ErrNotStarted indicates a process handle was used before spawn.
	ErrNotStarted = errors.New("process not started")
	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid config")
)
