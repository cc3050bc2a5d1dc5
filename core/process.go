package core

import (
	"context"
	"errors"
	"time"
)

// ErrWouldBlock is returned by Process.ReadNonBlocking when no output is
// available yet and the stream is still open.
var ErrWouldBlock = errors.New("no data available")

// Spawner starts shell commands with stdout and stderr merged into one stream.
type Spawner interface {
	SpawnMerged(ctx context.Context, command string) (Process, error)
}

// Process is a spawned child owned by the runner.
type Process interface {
	// Pid returns the platform process id.
	Pid() int
	// ReadNonBlocking reads whatever merged output is available into p.
	// It returns ErrWouldBlock when nothing is buffered and io.EOF once every
	// writer has closed the pipe.
	ReadNonBlocking(p []byte) (int, error)
	// TerminateGroup stops the process and anything it spawned. The grace
	// period separates the polite signal from the unconditional kill.
	// Failures because the process is already gone are absorbed.
	TerminateGroup(grace time.Duration) error
	// Close releases the read side of the output pipe. Safe to call twice.
	Close() error
	// Reap waits for the process to exit and returns its status.
	Reap() (ExitStatus, error)
}

// ExitStatus is the classified outcome of a reaped process.
type ExitStatus struct {
	Code     int
	Signaled bool
	Signal   string
}

// SpawnStage names the step of process creation that failed.
type SpawnStage string

const (
	// SpawnStagePipe means the merged output pipe could not be created.
	SpawnStagePipe SpawnStage = "pipe"
	// SpawnStageFork means the child process could not be started.
	SpawnStageFork SpawnStage = "fork"
	// SpawnStageStream means the read side of the pipe could not be opened.
	SpawnStageStream SpawnStage = "stream"
)

// SpawnError reports a failed spawn. The runner renders it into the output
// buffer instead of returning it to the caller.
type SpawnError struct {
	Stage SpawnStage
	Err   error
}

func (e *SpawnError) Error() string {
	var msg string
	switch e.Stage {
	case SpawnStagePipe:
		msg = "Failed to create pipe"
	case SpawnStageFork:
		msg = "Failed to fork process"
	case SpawnStageStream:
		msg = "Failed to open command pipe"
	default:
		msg = "Failed to start process"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
