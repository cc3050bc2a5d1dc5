package eventbus

import (
	"context"
	"sync"

	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventOutput carries text appended to the output buffer.
	EventOutput EventType = "output"
	// EventRun carries run lifecycle transitions.
	EventRun EventType = "run"
)

// Event is a runner event delivered to subscribers.
type Event struct {
	Type   EventType
	Output schema.OutputEvent
	Run    schema.RunEvent
}

// Filter selects which event types a subscriber receives. A nil filter
// receives everything.
type Filter func(EventType) bool

// OnlyRun passes run lifecycle events only.
func OnlyRun(t EventType) bool { return t == EventRun }

type subscriber struct {
	filter Filter
}

// Bus fans runner events out to subscribers without blocking the runner.
// Events for a full subscriber are dropped.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan Event]subscriber
	log     pslog.Logger
	depth   int
	dropped uint64
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]subscriber),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns its channel and a cancel
// function that closes it.
func (b *Bus) Subscribe(filter Filter) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = subscriber{filter: filter}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.Debug("eventbus unsubscribe")
			}
		})
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// OnOutput publishes an output event.
func (b *Bus) OnOutput(event schema.OutputEvent) {
	b.publish(Event{Type: EventOutput, Output: event})
}

// OnRunEvent publishes a run lifecycle event.
func (b *Bus) OnRunEvent(event schema.RunEvent) {
	b.publish(Event{Type: EventRun, Run: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	// Delivery happens under the lock so a concurrent cancel cannot close a
	// channel mid-send; sends never block.
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for ch, sub := range b.subs {
		if sub.filter != nil && !sub.filter(event.Type) {
			continue
		}
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.dropped += uint64(dropped)
		if b.log != nil {
			b.log.Trace("eventbus dropped", "type", event.Type, "count", dropped)
		}
	}
}
