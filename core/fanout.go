package core

import "pkt.systems/cmdpane/schema"

type eventFanout struct {
	sinks []EventSink
}

// MultiSink delivers every event to each non-nil sink in order.
func MultiSink(sinks ...EventSink) EventSink {
	kept := make([]EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return eventFanout{sinks: kept}
}

func (f eventFanout) OnOutput(event schema.OutputEvent) {
	for _, sink := range f.sinks {
		sink.OnOutput(event)
	}
}

func (f eventFanout) OnRunEvent(event schema.RunEvent) {
	for _, sink := range f.sinks {
		sink.OnRunEvent(event)
	}
}
