//go:build windows

package proc

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/schema"
)

// DefaultShell is used when Config.Shell is empty.
const DefaultShell = "cmd"

type readResult struct {
	data []byte
	err  error
}

type process struct {
	cmd     *exec.Cmd
	pid     int
	rd      *os.File
	results chan readResult
	closed  chan struct{}
	pending []byte
	eof     bool

	closeOnce sync.Once
	closeErr  error
	reapOnce  sync.Once
	status    core.ExitStatus
	reapErr   error
}

// SpawnMerged runs command as "cmd /C command" with stdout and stderr on one
// pipe. A reader goroutine feeds a channel so reads can report would-block.
func (s *Spawner) SpawnMerged(_ context.Context, command string) (core.Process, error) {
	rd, wr, err := os.Pipe()
	if err != nil {
		return nil, &core.SpawnError{Stage: core.SpawnStagePipe, Err: err}
	}
	cmd := exec.Command(s.shell(), "/C", command)
	cmd.Stdout = wr
	cmd.Stderr = wr
	cmd.Dir = s.cfg.Dir
	if s.cfg.Env != nil {
		cmd.Env = s.cfg.Env
	}
	if err := cmd.Start(); err != nil {
		_ = rd.Close()
		_ = wr.Close()
		return nil, &core.SpawnError{Stage: core.SpawnStageFork, Err: err}
	}
	_ = wr.Close()
	p := &process{
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		rd:      rd,
		results: make(chan readResult, 64),
		closed:  make(chan struct{}),
	}
	go p.pump()
	if s.log != nil {
		s.log.Debug("proc spawned", "pid", p.pid, "shell", s.shell())
	}
	return p, nil
}

func (p *process) pump() {
	defer close(p.results)
	buf := make([]byte, 4096)
	for {
		n, err := p.rd.Read(buf)
		if n > 0 && !p.send(readResult{data: append([]byte(nil), buf[:n]...)}) {
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.send(readResult{err: err})
			}
			return
		}
	}
}

func (p *process) send(res readResult) bool {
	select {
	case p.results <- res:
		return true
	case <-p.closed:
		return false
	}
}

func (p *process) Pid() int { return p.pid }

func (p *process) ReadNonBlocking(buf []byte) (int, error) {
	if p.results == nil {
		return 0, schema.ErrNotStarted
	}
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}
	if p.eof {
		return 0, io.EOF
	}
	select {
	case res, ok := <-p.results:
		if !ok {
			p.eof = true
			return 0, io.EOF
		}
		if res.err != nil {
			return 0, res.err
		}
		n := copy(buf, res.data)
		p.pending = res.data[n:]
		return n, nil
	default:
		return 0, core.ErrWouldBlock
	}
}

// TerminateGroup kills the process through its handle. Windows has no
// polite signal, so grace is ignored.
func (p *process) TerminateGroup(time.Duration) error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *process) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.closeErr = p.rd.Close()
	})
	return p.closeErr
}

func (p *process) Reap() (core.ExitStatus, error) {
	p.reapOnce.Do(func() {
		err := p.cmd.Wait()
		if p.cmd.ProcessState == nil {
			p.reapErr = err
			return
		}
		p.status = core.ExitStatus{Code: p.cmd.ProcessState.ExitCode()}
	})
	return p.status, p.reapErr
}
