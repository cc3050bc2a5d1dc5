package core

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/cmdpane/schema"
)

type fakeRead struct {
	data string
	err  error
}

// fakeProcess replays scripted reads. Once the script is exhausted it either
// reports EOF or, when hold is set, would-block until terminated.
type fakeProcess struct {
	mu         sync.Mutex
	pid        int
	reads      []fakeRead
	hold       bool
	stubborn   int
	terminates int
	closed     int
	status     ExitStatus
	reaped     chan struct{}
	reapOnce   sync.Once
}

func newFakeProcess(pid int, reads ...fakeRead) *fakeProcess {
	return &fakeProcess{pid: pid, reads: reads, reaped: make(chan struct{})}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) ReadNonBlocking(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reads) > 0 {
		next := p.reads[0]
		n := copy(buf, next.data)
		if n < len(next.data) {
			p.reads[0].data = next.data[n:]
			return n, nil
		}
		p.reads = p.reads[1:]
		return n, next.err
	}
	if p.hold && p.terminates == 0 {
		return 0, ErrWouldBlock
	}
	return 0, io.EOF
}

func (p *fakeProcess) TerminateGroup(time.Duration) error {
	p.mu.Lock()
	p.terminates++
	release := p.terminates > p.stubborn
	if release {
		p.status = ExitStatus{Code: -1, Signaled: true, Signal: "terminated"}
	}
	p.mu.Unlock()
	if release {
		p.reapOnce.Do(func() { close(p.reaped) })
	}
	return nil
}

func (p *fakeProcess) Close() error {
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return nil
}

// Reap returns at once unless the process holds, in which case it waits for
// a termination that is not ignored.
func (p *fakeProcess) Reap() (ExitStatus, error) {
	p.mu.Lock()
	hold := p.hold
	p.mu.Unlock()
	if hold {
		<-p.reaped
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, nil
}

func (p *fakeProcess) terminateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminates
}

type fakeSpawner struct {
	mu       sync.Mutex
	commands []string
	next     func(command string) (Process, error)
}

func (s *fakeSpawner) SpawnMerged(_ context.Context, command string) (Process, error) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	next := s.next
	s.mu.Unlock()
	return next(command)
}

func spawnerFor(proc Process) *fakeSpawner {
	return &fakeSpawner{next: func(string) (Process, error) { return proc, nil }}
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	runs   []schema.RunEvent
}

func (s *recordingSink) OnRunEvent(event schema.RunEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, event)
	s.events = append(s.events, "run:"+string(event.Type)+":"+event.Command)
}

func (s *recordingSink) OnOutput(event schema.OutputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "out:"+event.Text)
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func testRunnerConfig() RunnerConfig {
	cfg := DefaultRunnerConfig()
	cfg.PollInterval = time.Millisecond
	cfg.StopPollInterval = time.Millisecond
	cfg.KillGrace = time.Millisecond
	return cfg
}

func newTestRunner(t *testing.T, spawner Spawner, sink EventSink) *Runner {
	t.Helper()
	r, err := NewRunner(testRunnerConfig(), RunnerDeps{Spawner: spawner, EventSink: sink})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func waitIdle(t *testing.T, r *Runner) schema.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := r.Snapshot()
		if !snap.Running {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("runner still running; output so far: %q", r.Snapshot().Output)
	return schema.Snapshot{}
}

func indexOf(events []string, prefix string) int {
	for i, ev := range events {
		if strings.HasPrefix(ev, prefix) {
			return i
		}
	}
	return -1
}
