package schema

import "time"

// RunID identifies a single command execution.
type RunID string

// RunState is the lifecycle state of the command runner.
type RunState string

const (
	// RunStateIdle means no command is active.
	RunStateIdle RunState = "idle"
	// RunStateRunning means a worker is draining a child process.
	RunStateRunning RunState = "running"
	// RunStateStopping means a stop was requested and the worker is winding down.
	RunStateStopping RunState = "stopping"
)

// RecallDirection selects which way history recall moves the cursor.
type RecallDirection int

const (
	// RecallOlder walks toward the past.
	RecallOlder RecallDirection = iota
	// RecallNewer walks toward the most recent entry and past it.
	RecallNewer
)

// String returns a human-readable direction name.
func (d RecallDirection) String() string {
	switch d {
	case RecallOlder:
		return "older"
	case RecallNewer:
		return "newer"
	default:
		return "unknown"
	}
}

// RunResult describes how the last run finished.
type RunResult struct {
	RunID    RunID
	Command  string
	ExitCode int
	Stopped  bool
	// Error is set when the process could not be spawned.
	Error    string
	Finished time.Time
	Duration time.Duration
}

// Snapshot is a point-in-time copy of the runner's session state, read once
// per frame by a presentation layer.
type Snapshot struct {
	Output     string
	Running    bool
	ScrollHint bool
	State      RunState
	// Generation increments every time Output is reset, so a poller that
	// renders deltas knows to start over.
	Generation uint64
	Last       *RunResult
}

// Example is a labelled sample command.
type Example struct {
	Label   string `mapstructure:"label" yaml:"label"`
	Command string `mapstructure:"command" yaml:"command"`
}
