package core

import (
	"time"

	"pkt.systems/pslog"
)

// RunnerDeps captures collaborators of the runner. Spawner is required.
type RunnerDeps struct {
	Spawner   Spawner
	EventSink EventSink
	Logger    pslog.Logger
	Now       func() time.Time
}
