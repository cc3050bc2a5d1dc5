package core

import (
	"context"
	"errors"
	"io"
	"time"

	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

type drainStats struct {
	lines int
	bytes int
	waits int
}

// drain copies the merged output of proc into the session until end of
// stream or until ctx is cancelled.
func (r *Runner) drain(ctx context.Context, runID schema.RunID, proc Process) drainStats {
	var stats drainStats
	log := pslog.Ctx(ctx)
	reader := newLineReader(proc, r.cfg.LineBufferSize)
	timer := time.NewTimer(r.cfg.PollInterval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil || r.session.stopRequested.Load() {
			log.Debug("runner drain cancelled", "lines", stats.lines, "bytes", stats.bytes)
			return stats
		}
		line, err := reader.ReadLine()
		if line != "" {
			stats.lines++
			stats.bytes += len(line)
			r.session.Append(line)
			r.emitOutput(runID, line)
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			log.Debug("runner drain eof", "lines", stats.lines, "bytes", stats.bytes, "waits", stats.waits)
			return stats
		case errors.Is(err, ErrWouldBlock):
			stats.waits++
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.cfg.PollInterval)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		default:
			log.Warn("runner read failed", "err", err)
			msg := schema.ErrorLine("read failed: " + err.Error())
			r.session.Append(msg)
			r.emitOutput(runID, msg)
			return stats
		}
	}
}
