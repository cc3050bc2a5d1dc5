package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkt.systems/cmdpane/internal/logx"
	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

// RunnerConfig tunes polling and termination timings.
type RunnerConfig struct {
	HistoryMax       int
	LineBufferSize   int
	PollInterval     time.Duration
	StopPollInterval time.Duration
	StopPollAttempts int
	KillGrace        time.Duration
}

// DefaultRunnerConfig returns the stock timings: 10ms output polling, ten
// 50ms stop polls before a forced kill, and 100ms between SIGTERM and SIGKILL.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		HistoryMax:       defaultHistoryMax,
		LineBufferSize:   defaultLineBufferSize,
		PollInterval:     10 * time.Millisecond,
		StopPollInterval: 50 * time.Millisecond,
		StopPollAttempts: 10,
		KillGrace:        100 * time.Millisecond,
	}
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	def := DefaultRunnerConfig()
	if c.HistoryMax <= 0 {
		c.HistoryMax = def.HistoryMax
	}
	if c.LineBufferSize <= 1 {
		c.LineBufferSize = def.LineBufferSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.StopPollInterval <= 0 {
		c.StopPollInterval = def.StopPollInterval
	}
	if c.StopPollAttempts < 0 {
		c.StopPollAttempts = def.StopPollAttempts
	}
	if c.KillGrace <= 0 {
		c.KillGrace = def.KillGrace
	}
	return c
}

// Runner executes one shell command at a time in a background worker and
// exposes the accumulated output to a polling presentation layer.
type Runner struct {
	cfg     RunnerConfig
	spawner Spawner
	sink    EventSink
	log     pslog.Logger
	now     func() time.Time
	sleep   func(time.Duration)

	session *session

	histMu  sync.Mutex
	history *historyBuffer

	// ctlMu serializes Start, Stop and Close.
	ctlMu  sync.Mutex
	closed bool
	worker *worker

	procMu sync.Mutex
	proc   Process
}

type worker struct {
	runID   schema.RunID
	command string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner constructs an idle runner.
func NewRunner(cfg RunnerConfig, deps RunnerDeps) (*Runner, error) {
	if deps.Spawner == nil {
		return nil, errors.New("spawner is required")
	}
	cfg = cfg.withDefaults()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		cfg:     cfg,
		spawner: deps.Spawner,
		sink:    deps.EventSink,
		log:     deps.Logger,
		now:     now,
		sleep:   time.Sleep,
		session: newSession(),
		history: newHistory(cfg.HistoryMax),
	}, nil
}

// Start launches command in a fresh worker. A command that is still running
// is stopped and joined first, so the call blocks until it is gone. Spawn
// failures are written to the output buffer, not returned.
func (r *Runner) Start(ctx context.Context, command string, withTimestamp bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	command = strings.TrimRight(command, " \t\r\n")
	if strings.TrimSpace(command) == "" {
		return schema.ErrEmptyCommand
	}

	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	if r.closed {
		return schema.ErrRunnerClosed
	}
	r.stopLocked(ctx)

	runID := schema.RunID(uuid.NewString())
	log := logx.WithCommand(r.logger(ctx).With("run_id", runID), command)

	var head strings.Builder
	if withTimestamp {
		head.WriteString(schema.TimestampPrefix(FormatTimestamp(r.now())))
	}
	head.WriteString(schema.CommandEcho(command))
	if LooksInteractive(command) {
		log.Warn("runner command may prompt for input")
		head.WriteString(schema.InteractiveWarning)
	}
	r.session.Begin(head.String())
	r.emitOutput(runID, head.String())

	r.histMu.Lock()
	r.history.Record(command)
	r.histMu.Unlock()

	runCtx, cancel := detachRunContext(ctx, log, runID)
	w := &worker{
		runID:   runID,
		command: command,
		started: r.now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.worker = w
	r.emitRun(schema.RunEvent{Type: schema.RunEventStarted, RunID: runID, Command: command, At: w.started})
	log.Info("runner start", "timestamp", withTimestamp)
	go r.run(runCtx, w)
	return nil
}

// Stop asks the active command to end, escalates to a forced kill when it
// does not finish in time, and returns once the worker has exited. It is a
// no-op when nothing is running.
func (r *Runner) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	r.stopLocked(ctx)
}

// Close stops any active command and rejects later starts.
func (r *Runner) Close() error {
	r.ctlMu.Lock()
	defer r.ctlMu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.stopLocked(context.Background())
	r.logger(context.Background()).Debug("runner closed")
	return nil
}

func (r *Runner) stopLocked(ctx context.Context) {
	w := r.worker
	if w == nil {
		return
	}
	log := r.logger(ctx).With("run_id", w.runID)
	if !isDone(w.done) {
		log.Info("runner stop requested")
		r.session.RequestStop()
		w.cancel()
		for i := 0; i < r.cfg.StopPollAttempts && r.session.running.Load(); i++ {
			r.sleep(r.cfg.StopPollInterval)
		}
		if r.session.running.Load() {
			log.Warn("runner stop timed out; killing process group")
			r.forceKill(log)
		}
	}
	<-w.done
	w.cancel()
	r.worker = nil
	log.Debug("runner worker joined")
}

func (r *Runner) forceKill(log pslog.Logger) {
	r.procMu.Lock()
	proc := r.proc
	r.procMu.Unlock()
	if proc == nil {
		return
	}
	if err := proc.TerminateGroup(r.cfg.KillGrace); err != nil {
		log.Warn("runner kill failed", "pid", proc.Pid(), "err", err)
	}
}

// Clear empties the output buffer whether or not a command is running.
func (r *Runner) Clear() {
	r.session.Clear()
	r.emitRun(schema.RunEvent{Type: schema.RunEventCleared, At: r.now()})
}

// Snapshot returns the current output and flags without waiting on the worker.
func (r *Runner) Snapshot() schema.Snapshot {
	return r.session.Snapshot()
}

// Running reports whether a command is active.
func (r *Runner) Running() bool {
	return r.session.running.Load()
}

// ConsumeScrollHint returns the scroll hint and resets it.
func (r *Runner) ConsumeScrollHint() bool {
	return r.session.scrollHint.Swap(false)
}

// RecallHistory moves the history cursor and returns the selected command.
func (r *Runner) RecallHistory(dir schema.RecallDirection) string {
	r.histMu.Lock()
	defer r.histMu.Unlock()
	return r.history.Recall(dir)
}

// History returns recorded commands, oldest first.
func (r *Runner) History() []string {
	r.histMu.Lock()
	defer r.histMu.Unlock()
	return r.history.Entries()
}

// ClearHistory drops all recorded commands.
func (r *Runner) ClearHistory() {
	r.histMu.Lock()
	r.history.Clear()
	r.histMu.Unlock()
}

func (r *Runner) run(ctx context.Context, w *worker) {
	defer close(w.done)
	log := logx.WithRun(ctx, w.runID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("runner worker panic", "panic", rec)
			r.setProc(nil)
			line := schema.ErrorLine(fmt.Sprintf("internal: %v", rec))
			r.emitOutput(w.runID, line)
			r.session.Finish(line, r.result(w, schema.StoppedExitCode, false, fmt.Sprint(rec)))
			r.emitRun(schema.RunEvent{Type: schema.RunEventFailed, RunID: w.runID, Command: w.command, ExitCode: schema.StoppedExitCode, Message: fmt.Sprint(rec), At: r.now()})
		}
	}()

	proc, err := r.spawner.SpawnMerged(ctx, w.command)
	if err != nil {
		r.failSpawn(log, w, err)
		return
	}
	r.setProc(proc)
	log.Info("runner process started", "pid", proc.Pid())

	stats := r.drain(ctx, w.runID, proc)
	stopped := r.session.stopRequested.Load() || ctx.Err() != nil
	if stopped {
		if err := proc.TerminateGroup(r.cfg.KillGrace); err != nil {
			log.Warn("runner terminate failed", "pid", proc.Pid(), "err", err)
		}
	}
	if err := proc.Close(); err != nil {
		log.Debug("runner stream close failed", "err", err)
	}
	status, err := proc.Reap()
	r.setProc(nil)

	exitCode := status.Code
	if err != nil {
		log.Warn("runner reap failed", "pid", proc.Pid(), "err", err)
		exitCode = schema.StoppedExitCode
	}
	if status.Signaled {
		exitCode = schema.StoppedExitCode
	}
	trailer := schema.ExitTrailer(exitCode)
	if stopped {
		exitCode = schema.StoppedExitCode
		trailer = schema.StoppedTrailer
	}

	fields := []any{
		"pid", proc.Pid(),
		"exit_code", exitCode,
		"stopped", stopped,
		"lines", stats.lines,
		"bytes", stats.bytes,
		"duration_ms", r.now().Sub(w.started).Milliseconds(),
	}
	if status.Signal != "" {
		fields = append(fields, "signal", status.Signal)
	}
	log.Info("runner process finished", fields...)

	r.emitOutput(w.runID, trailer)
	r.session.Finish(trailer, r.result(w, exitCode, stopped, ""))
	r.emitRun(schema.RunEvent{Type: schema.RunEventFinished, RunID: w.runID, Command: w.command, ExitCode: exitCode, Stopped: stopped, At: r.now()})
}

func (r *Runner) failSpawn(log pslog.Logger, w *worker, err error) {
	var spawnErr *SpawnError
	stage := ""
	if errors.As(err, &spawnErr) {
		stage = string(spawnErr.Stage)
	}
	log.Error("runner spawn failed", "stage", stage, "err", err)
	line := schema.ErrorLine(err.Error())
	r.emitOutput(w.runID, line)
	r.session.Finish(line, r.result(w, schema.StoppedExitCode, false, err.Error()))
	r.emitRun(schema.RunEvent{Type: schema.RunEventFailed, RunID: w.runID, Command: w.command, ExitCode: schema.StoppedExitCode, Message: err.Error(), At: r.now()})
}

func (r *Runner) result(w *worker, exitCode int, stopped bool, errMsg string) schema.RunResult {
	finished := r.now()
	return schema.RunResult{
		RunID:    w.runID,
		Command:  w.command,
		ExitCode: exitCode,
		Stopped:  stopped,
		Error:    errMsg,
		Finished: finished,
		Duration: finished.Sub(w.started),
	}
}

func (r *Runner) setProc(proc Process) {
	r.procMu.Lock()
	r.proc = proc
	r.procMu.Unlock()
}

func (r *Runner) emitOutput(runID schema.RunID, text string) {
	if r.sink == nil || text == "" {
		return
	}
	r.sink.OnOutput(schema.OutputEvent{RunID: runID, Text: text})
}

func (r *Runner) emitRun(event schema.RunEvent) {
	if r.sink == nil {
		return
	}
	r.sink.OnRunEvent(event)
}

// logger prefers the runner's own logger and falls back to the one on ctx.
func (r *Runner) logger(ctx context.Context) pslog.Logger {
	if r.log != nil {
		return r.log
	}
	return pslog.Ctx(ctx)
}

// detachRunContext gives the worker a context that outlives the caller's
// but keeps its logger.
func detachRunContext(ctx context.Context, log pslog.Logger, runID schema.RunID) (context.Context, context.CancelFunc) {
	base := context.Background()
	if ctx != nil {
		base = logx.CopyContextFields(base, ctx)
	}
	base = logx.ContextWithRunLogger(base, log, runID)
	return context.WithCancel(base)
}

func isDone(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
