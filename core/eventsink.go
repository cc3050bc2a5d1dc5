package core

import "pkt.systems/cmdpane/schema"

// EventSink receives run lifecycle and output events from the runner.
// Implementations must not block.
type EventSink interface {
	OnRunEvent(event schema.RunEvent)
	OnOutput(event schema.OutputEvent)
}
