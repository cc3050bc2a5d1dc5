//go:build unix

package core_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/internal/proc"
	"pkt.systems/cmdpane/schema"
)

func newShellRunner(t *testing.T) *core.Runner {
	t.Helper()
	r, err := core.NewRunner(core.DefaultRunnerConfig(), core.RunnerDeps{
		Spawner: proc.NewSpawner(proc.Config{}, nil),
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestShellTrueExitsZero(t *testing.T) {
	r := newShellRunner(t)
	if err := r.Start(context.Background(), "true", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "true to finish", func() bool { return !r.Running() })
	out := r.Snapshot().Output
	if !strings.HasSuffix(out, "[Process exited with code: 0]\n") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestShellOutputIsIncremental(t *testing.T) {
	r := newShellRunner(t)
	if err := r.Start(context.Background(), "echo first; sleep 30", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "first line", func() bool {
		return strings.Contains(r.Snapshot().Output, "first\n")
	})
	if !r.Running() {
		t.Fatalf("expected command still running")
	}
	r.Stop(context.Background())
}

func TestShellStopEndsWithStoppedTrailer(t *testing.T) {
	r := newShellRunner(t)
	if err := r.Start(context.Background(), "sleep 30", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	started := time.Now()
	r.Stop(context.Background())
	if r.Running() {
		t.Fatalf("expected idle after stop")
	}
	if !strings.HasSuffix(r.Snapshot().Output, "[STOPPED BY USER]\n") {
		t.Fatalf("unexpected output %q", r.Snapshot().Output)
	}
	if time.Since(started) > 5*time.Second {
		t.Fatalf("stop took %s", time.Since(started))
	}
}

func TestShellStopKillsDescendants(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pids")
	r := newShellRunner(t)
	cmd := "sleep 30 & echo $! >> " + pidFile + "; sleep 30 & echo $! >> " + pidFile + "; wait"
	if err := r.Start(context.Background(), cmd, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	var pids []int
	waitFor(t, "child pids", func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		pids = pids[:0]
		for _, field := range strings.Fields(string(data)) {
			if pid, err := strconv.Atoi(field); err == nil {
				pids = append(pids, pid)
			}
		}
		return len(pids) == 2
	})
	r.Stop(context.Background())

	// SIGKILL is delivered asynchronously, so allow the scheduler a moment
	// but nothing close to the stop timings.
	for _, pid := range pids {
		deadline := time.Now().Add(50 * time.Millisecond)
		for !errors.Is(unix.Kill(pid, 0), unix.ESRCH) && !isZombie(pid) {
			if time.Now().After(deadline) {
				t.Fatalf("descendant %d still alive after stop returned", pid)
			}
			time.Sleep(time.Millisecond)
		}
	}
	if !strings.HasSuffix(r.Snapshot().Output, schema.StoppedTrailer) {
		t.Fatalf("unexpected output %q", r.Snapshot().Output)
	}
}

// isZombie reports a dead child that has not been collected by init yet.
func isZombie(pid int) bool {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	fields := strings.Fields(string(data))
	return len(fields) > 2 && fields[2] == "Z"
}

func TestShellSnapshotIdleAlwaysHasTrailer(t *testing.T) {
	r := newShellRunner(t)
	done := make(chan struct{})
	bad := make(chan schema.Snapshot, 1)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			snap := r.Snapshot()
			if snap.Running || snap.Output == "" {
				continue
			}
			if !strings.Contains(snap.Output, "[Process exited with code: ") && !strings.Contains(snap.Output, "[ERROR]") && !strings.HasSuffix(snap.Output, schema.StoppedTrailer) {
				select {
				case bad <- snap:
				default:
				}
				return
			}
		}
	}()
	for i := 0; i < 300; i++ {
		if err := r.Start(context.Background(), "true", false); err != nil {
			close(done)
			t.Fatalf("start: %v", err)
		}
		waitFor(t, "true to finish", func() bool { return !r.Running() })
	}
	close(done)
	select {
	case snap := <-bad:
		t.Fatalf("idle snapshot without trailer: %q (state %s)", snap.Output, snap.State)
	default:
	}
}

func TestShellStopDoesNotWaitFullGraceAfterSigterm(t *testing.T) {
	cfg := core.DefaultRunnerConfig()
	cfg.KillGrace = 5 * time.Second
	cfg.StopPollAttempts = 200
	r, err := core.NewRunner(cfg, core.RunnerDeps{
		Spawner: proc.NewSpawner(proc.Config{}, nil),
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()
	if err := r.Start(context.Background(), "sleep 30", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	start := time.Now()
	r.Stop(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stop took %s although the command died on SIGTERM", elapsed)
	}
	if !strings.HasSuffix(r.Snapshot().Output, schema.StoppedTrailer) {
		t.Fatalf("unexpected output %q", r.Snapshot().Output)
	}
}
