package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pkt.systems/cmdpane/internal/logx"
	"pkt.systems/cmdpane/internal/version"
	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

// Runner is the part of core.Runner the console drives.
type Runner interface {
	Start(ctx context.Context, command string, withTimestamp bool) error
	Stop(ctx context.Context)
	Clear()
	Snapshot() schema.Snapshot
	RecallHistory(dir schema.RecallDirection) string
	History() []string
	ClearHistory()
}

// Notifier prints console notices outside the command output buffer.
type Notifier interface {
	Notice(line string)
}

// HandlerConfig configures slash command behavior.
type HandlerConfig struct {
	Examples            []schema.Example
	Timestamps          bool
	DisableAuditLogging bool
}

// Result reports side effects the caller must act on.
type Result struct {
	Quit bool
}

// ErrUnknownCommand is returned for slash commands that do not exist.
var ErrUnknownCommand = errors.New("unknown command")

// Handler routes console input to runner operations.
type Handler struct {
	runner   Runner
	notifier Notifier
	cfg      HandlerConfig

	timestamps bool
	recalled   string
}

// NewHandler constructs a command handler.
func NewHandler(runner Runner, notifier Notifier, cfg HandlerConfig) *Handler {
	return &Handler{
		runner:     runner,
		notifier:   notifier,
		cfg:        cfg,
		timestamps: cfg.Timestamps,
	}
}

// Timestamps reports whether new runs get a timestamp prefix.
func (h *Handler) Timestamps() bool {
	return h.timestamps
}

// Recalled returns the command selected by /up or /down.
func (h *Handler) Recalled() string {
	return h.recalled
}

// Handle executes one line of console input. Lines starting with "/" are
// slash commands, "!" forces the rest of the line to run as a shell command,
// anything else runs as-is.
func (h *Handler) Handle(ctx context.Context, input string) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("missing context")
	}
	log := pslog.Ctx(ctx).With("input_len", len(input))
	line := Classify(input)
	switch line.Kind {
	case LineBlank:
		return Result{}, nil
	case LineShell:
		return Result{}, h.start(ctx, line.Shell)
	}
	cmd := line.Slash
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "slash", "command", strings.TrimSpace(input))
	}
	log = log.With("command", cmd.Name, "args", len(cmd.Args))
	log.Info("command slash request")
	switch cmd.Name {
	case "":
		log.Warn("command slash rejected", "reason", "empty")
		return Result{}, errors.New("invalid command")
	case "stop", "z":
		h.runner.Stop(ctx)
		log.Info("command stop completed")
		return Result{}, nil
	case "clear":
		h.runner.Clear()
		return Result{}, nil
	case "history":
		h.handleHistory()
		return Result{}, nil
	case "clearhistory":
		h.runner.ClearHistory()
		h.recalled = ""
		h.notice("history cleared")
		return Result{}, nil
	case "up":
		h.handleRecall(schema.RecallOlder)
		return Result{}, nil
	case "down":
		h.handleRecall(schema.RecallNewer)
		return Result{}, nil
	case "run":
		return Result{}, h.handleRun(ctx, cmd)
	case "timestamps", "ts":
		return Result{}, h.handleTimestamps(cmd)
	case "examples":
		h.handleExamples()
		return Result{}, nil
	case "example":
		return Result{}, h.handleExample(ctx, cmd)
	case "status":
		h.handleStatus()
		return Result{}, nil
	case "help", "?":
		for _, line := range helpLines() {
			h.notice(line)
		}
		return Result{}, nil
	case "version":
		h.notice(version.Get().String())
		return Result{}, nil
	case "quit", "exit", "q":
		log.Info("command quit requested")
		return Result{Quit: true}, nil
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return Result{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, cmd.Name)
	}
}

func (h *Handler) start(ctx context.Context, command string) error {
	log := logx.WithCommand(pslog.Ctx(ctx), command)
	h.recalled = ""
	if err := h.runner.Start(ctx, command, h.timestamps); err != nil {
		log.Warn("command start failed", "err", err)
		return err
	}
	return nil
}

func (h *Handler) handleHistory() {
	entries := h.runner.History()
	if len(entries) == 0 {
		h.notice("history is empty")
		return
	}
	for i, entry := range entries {
		h.notice(fmt.Sprintf("%3d  %s", i+1, entry))
	}
}

func (h *Handler) handleRecall(dir schema.RecallDirection) {
	h.recalled = h.runner.RecallHistory(dir)
	if h.recalled == "" {
		h.notice("recall: (none)")
		return
	}
	h.notice("recall: " + h.recalled + "  (/run to execute)")
}

func (h *Handler) handleRun(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		if h.recalled == "" {
			return errors.New("usage: /run [history-number]; nothing recalled")
		}
		return h.start(ctx, h.recalled)
	}
	entries := h.runner.History()
	n, err := strconv.Atoi(cmd.Args[0])
	if err != nil || n < 1 || n > len(entries) {
		return fmt.Errorf("usage: /run [1-%d]", len(entries))
	}
	return h.start(ctx, entries[n-1])
}

func (h *Handler) handleTimestamps(cmd Command) error {
	if len(cmd.Args) == 0 {
		h.timestamps = !h.timestamps
	} else {
		switch strings.ToLower(cmd.Args[0]) {
		case "on", "true", "1":
			h.timestamps = true
		case "off", "false", "0":
			h.timestamps = false
		default:
			return errors.New("usage: /timestamps [on|off]")
		}
	}
	if h.timestamps {
		h.notice("timestamps on")
	} else {
		h.notice("timestamps off")
	}
	return nil
}

func (h *Handler) handleExamples() {
	if len(h.cfg.Examples) == 0 {
		h.notice("no examples configured")
		return
	}
	for i, example := range h.cfg.Examples {
		label := example.Label
		if label == "" {
			label = example.Command
		}
		h.notice(fmt.Sprintf("%3d  %-18s %s", i+1, label, example.Command))
	}
}

func (h *Handler) handleExample(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("usage: /example <1-%d>", len(h.cfg.Examples))
	}
	n, err := strconv.Atoi(cmd.Args[0])
	if err != nil || n < 1 || n > len(h.cfg.Examples) {
		return fmt.Errorf("usage: /example <1-%d>", len(h.cfg.Examples))
	}
	return h.start(ctx, h.cfg.Examples[n-1].Command)
}

func (h *Handler) handleStatus() {
	snap := h.runner.Snapshot()
	h.notice(fmt.Sprintf("state: %s  timestamps: %t  history: %d", snap.State, h.timestamps, len(h.runner.History())))
	if snap.Last == nil {
		return
	}
	last := snap.Last
	switch {
	case last.Error != "":
		h.notice(fmt.Sprintf("last: %s failed: %s", last.Command, last.Error))
	case last.Stopped:
		h.notice(fmt.Sprintf("last: %s stopped after %s", last.Command, last.Duration.Round(time.Millisecond)))
	default:
		h.notice(fmt.Sprintf("last: %s exited %d after %s", last.Command, last.ExitCode, last.Duration.Round(time.Millisecond)))
	}
}

func (h *Handler) notice(line string) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notice(line)
}

func helpLines() []string {
	return []string{
		"<command>            run a shell command (replaces the running one)",
		"!<command>           run a command that starts with /",
		"/stop, /z            stop the running command",
		"/clear               clear the output",
		"/history             list previous commands",
		"/clearhistory        forget previous commands",
		"/up, /down           recall older or newer commands",
		"/run [n]             run the recalled command or history entry n",
		"/timestamps [on|off] prefix new runs with the start time",
		"/examples            list example commands",
		"/example <n>         run example n",
		"/status              show runner state and the last result",
		"/version             show version",
		"/quit                stop and exit",
	}
}
