//go:build unix

package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/schema"
)

// DefaultShell is used when Config.Shell is empty.
const DefaultShell = "/bin/sh"

type process struct {
	cmd  *exec.Cmd
	pid  int
	pgid int
	rd   *os.File
	raw  syscall.RawConn

	closeOnce sync.Once
	closeErr  error

	// exited closes once the child has been waited for; status and waitErr
	// are set before that.
	exited  chan struct{}
	status  core.ExitStatus
	waitErr error
}

// groupPollInterval spaces liveness checks during the termination grace.
const groupPollInterval = 5 * time.Millisecond

// SpawnMerged runs command as "<shell> -c command" in a new process group.
// Stdout and stderr share one pipe whose read end is non-blocking.
func (s *Spawner) SpawnMerged(_ context.Context, command string) (core.Process, error) {
	rd, wr, err := os.Pipe()
	if err != nil {
		return nil, &core.SpawnError{Stage: core.SpawnStagePipe, Err: err}
	}
	cmd := exec.Command(s.shell(), "-c", command)
	cmd.Stdout = wr
	cmd.Stderr = wr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
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

	p := &process{cmd: cmd, pid: cmd.Process.Pid, pgid: cmd.Process.Pid, rd: rd, exited: make(chan struct{})}
	go p.wait()
	if pgid, err := unix.Getpgid(p.pid); err == nil {
		p.pgid = pgid
	}
	if err := p.openStream(); err != nil {
		_ = p.TerminateGroup(0)
		_ = p.Close()
		_, _ = p.Reap()
		return nil, &core.SpawnError{Stage: core.SpawnStageStream, Err: err}
	}
	s.applyNice(p.pid)
	if s.log != nil {
		s.log.Debug("proc spawned", "pid", p.pid, "pgid", p.pgid, "shell", s.shell())
	}
	return p, nil
}

func (p *process) openStream() error {
	raw, err := p.rd.SyscallConn()
	if err != nil {
		return err
	}
	var nbErr error
	if err := raw.Control(func(fd uintptr) {
		nbErr = unix.SetNonblock(int(fd), true)
	}); err != nil {
		return err
	}
	if nbErr != nil {
		return fmt.Errorf("set nonblock: %w", nbErr)
	}
	p.raw = raw
	return nil
}

func (s *Spawner) applyNice(pid int) {
	if s.cfg.Nice == 0 || pid <= 0 {
		return
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, s.cfg.Nice); err != nil {
		if s.log != nil {
			s.log.Warn("proc nice set failed", "pid", pid, "nice", s.cfg.Nice, "err", err)
		}
		return
	}
	if s.log != nil {
		s.log.Debug("proc nice set", "pid", pid, "nice", s.cfg.Nice)
	}
}

func (p *process) Pid() int { return p.pid }

// ReadNonBlocking performs a single read(2) on the pipe without parking in
// the runtime poller.
func (p *process) ReadNonBlocking(buf []byte) (int, error) {
	if p.raw == nil {
		return 0, schema.ErrNotStarted
	}
	if len(buf) == 0 {
		return 0, nil
	}
	var n int
	var readErr error
	if err := p.raw.Read(func(fd uintptr) bool {
		n, readErr = unix.Read(int(fd), buf)
		return true
	}); err != nil {
		if errors.Is(err, os.ErrClosed) {
			return 0, io.EOF
		}
		return 0, err
	}
	switch {
	case readErr == nil && n == 0:
		return 0, io.EOF
	case errors.Is(readErr, unix.EAGAIN), errors.Is(readErr, unix.EINTR):
		return 0, core.ErrWouldBlock
	case readErr != nil:
		return 0, readErr
	}
	return n, nil
}

// TerminateGroup sends SIGTERM to the process group and gives it up to
// grace to exit before sending SIGKILL. It returns early once the child has
// been waited for and nothing in the group or among its known descendants
// is left. Descendants that moved to their own group are signalled as well
// where the platform lets us find them.
func (p *process) TerminateGroup(grace time.Duration) error {
	if p.gone(nil) {
		return nil
	}
	stray := descendants(p.pid)
	if err := p.signal(unix.SIGTERM, stray); err != nil {
		return err
	}
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if p.gone(stray) {
			return nil
		}
		time.Sleep(min(groupPollInterval, time.Until(deadline)))
	}
	if p.gone(stray) {
		return nil
	}
	return p.signal(unix.SIGKILL, stray)
}

// gone reports whether the child was waited for and no member of its group
// or of stray can still receive signals.
func (p *process) gone(stray []int) bool {
	select {
	case <-p.exited:
	default:
		return false
	}
	if !errors.Is(unix.Kill(-p.pgid, 0), unix.ESRCH) {
		return false
	}
	for _, pid := range stray {
		if !errors.Is(unix.Kill(pid, 0), unix.ESRCH) {
			return false
		}
	}
	return true
}

func (p *process) signal(sig unix.Signal, stray []int) error {
	err := unix.Kill(-p.pgid, sig)
	if errors.Is(err, unix.ESRCH) {
		err = nil
	}
	for _, pid := range stray {
		_ = unix.Kill(pid, sig)
	}
	if err != nil {
		return fmt.Errorf("signal %s to group %d: %w", unix.SignalName(sig), p.pgid, err)
	}
	return nil
}

func (p *process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.rd.Close()
	})
	return p.closeErr
}

// Reap blocks until the child has exited and classifies how it ended.
func (p *process) Reap() (core.ExitStatus, error) {
	<-p.exited
	return p.status, p.waitErr
}

func (p *process) wait() {
	defer close(p.exited)
	err := p.cmd.Wait()
	state := p.cmd.ProcessState
	if state == nil {
		p.waitErr = err
		return
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		p.status = core.ExitStatus{
			Code:     schema.StoppedExitCode,
			Signaled: true,
			Signal:   unix.SignalName(ws.Signal()),
		}
		return
	}
	p.status = core.ExitStatus{Code: state.ExitCode()}
}
