package logx

import (
	"context"

	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	runKey contextKey = iota
)

const commandPreviewMax = 200

// WithRun annotates the logger with the run id if present.
func WithRun(ctx context.Context, runID schema.RunID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if runID != "" {
		if current, ok := ctx.Value(runKey).(schema.RunID); ok && current == runID {
			return log
		}
		log = log.With("run_id", runID)
	}
	return log
}

// WithCommand annotates the logger with a bounded preview of the command.
func WithCommand(log pslog.Logger, command string) pslog.Logger {
	if command == "" {
		return log
	}
	preview := Preview(command, commandPreviewMax)
	log = log.With("command", preview)
	if len(preview) < len(command) {
		log = log.With("command_len", len(command))
	}
	return log
}

// ContextWithRun stores the run marker on the context for log de-duplication.
func ContextWithRun(ctx context.Context, runID schema.RunID) context.Context {
	if ctx == nil || runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, runID)
}

// ContextWithRunLogger attaches the logger and run marker to the context.
func ContextWithRunLogger(ctx context.Context, log pslog.Logger, runID schema.RunID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithRun(ctx, runID)
}

// CopyContextFields copies the run marker from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if runID, ok := src.Value(runKey).(schema.RunID); ok && runID != "" {
		dst = ContextWithRun(dst, runID)
	}
	return dst
}

// Preview truncates value to at most max bytes.
func Preview(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
