package schema

import "time"

// RunEventType identifies a run lifecycle transition.
type RunEventType string

const (
	// RunEventStarted is emitted after the echo line is written.
	RunEventStarted RunEventType = "started"
	// RunEventFinished is emitted after the terminal trailer is written.
	RunEventFinished RunEventType = "finished"
	// RunEventFailed is emitted when spawning the process failed.
	RunEventFailed RunEventType = "failed"
	// RunEventCleared is emitted when the output buffer is cleared.
	RunEventCleared RunEventType = "cleared"
)

// RunEvent describes a runner lifecycle transition.
type RunEvent struct {
	Type     RunEventType
	RunID    RunID
	Command  string
	ExitCode int
	Stopped  bool
	Message  string
	At       time.Time
}

// OutputEvent carries text appended to the output buffer.
type OutputEvent struct {
	RunID RunID
	Text  string
}
