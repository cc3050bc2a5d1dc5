package core

import (
	"strings"
	"sync"
	"sync/atomic"

	"pkt.systems/cmdpane/schema"
)

// session is the mailbox shared between the worker and the presentation
// layer. Text is guarded by mu. running and state only change while mu is
// held, so a snapshot never pairs idle with text that lacks its trailer.
// The flags stay atomic for lock-free polling.
type session struct {
	mu     sync.Mutex
	output strings.Builder
	last   *schema.RunResult

	running       atomic.Bool
	stopRequested atomic.Bool
	scrollHint    atomic.Bool
	generation    atomic.Uint64
	state         atomic.Value // schema.RunState
}

func newSession() *session {
	s := &session{}
	s.state.Store(schema.RunStateIdle)
	return s
}

func (s *session) Append(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.output.WriteString(text)
	s.mu.Unlock()
	s.scrollHint.Store(true)
}

// Reset drops the accumulated text and writes text as the new head.
func (s *session) Reset(text string) {
	s.mu.Lock()
	s.output.Reset()
	s.output.WriteString(text)
	s.generation.Add(1)
	s.mu.Unlock()
	s.scrollHint.Store(true)
}

func (s *session) Clear() {
	s.Reset("")
}

// Begin replaces the text with head and marks the session running in one
// step.
func (s *session) Begin(head string) {
	s.mu.Lock()
	s.output.Reset()
	s.output.WriteString(head)
	s.generation.Add(1)
	s.stopRequested.Store(false)
	s.state.Store(schema.RunStateRunning)
	s.running.Store(true)
	s.mu.Unlock()
	s.scrollHint.Store(true)
}

// RequestStop flags an active run for stopping. It reports false when the
// run has already finished.
func (s *session) RequestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.stopRequested.Store(true)
	s.state.Store(schema.RunStateStopping)
	return true
}

// Finish appends the trailer, records the result and only then clears the
// running flag.
func (s *session) Finish(trailer string, result schema.RunResult) {
	s.mu.Lock()
	s.output.WriteString(trailer)
	res := result
	s.last = &res
	s.state.Store(schema.RunStateIdle)
	s.running.Store(false)
	s.stopRequested.Store(false)
	s.mu.Unlock()
	s.scrollHint.Store(true)
}

func (s *session) State() schema.RunState {
	if state, ok := s.state.Load().(schema.RunState); ok {
		return state
	}
	return schema.RunStateIdle
}

func (s *session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}

func (s *session) Snapshot() schema.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *schema.RunResult
	if s.last != nil {
		res := *s.last
		last = &res
	}
	return schema.Snapshot{
		Output:     s.output.String(),
		Running:    s.running.Load(),
		ScrollHint: s.scrollHint.Load(),
		State:      s.State(),
		Generation: s.generation.Load(),
		Last:       last,
	}
}
