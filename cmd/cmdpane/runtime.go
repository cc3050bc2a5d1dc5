package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/internal/appconfig"
	"pkt.systems/cmdpane/internal/proc"
	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

func newRunner(cfg appconfig.Config, sink core.EventSink, logger pslog.Logger) (*core.Runner, error) {
	spawner := proc.NewSpawner(cfg.SpawnConfig(), logger)
	runner, err := core.NewRunner(cfg.RunnerConfig(), core.RunnerDeps{
		Spawner:   spawner,
		EventSink: sink,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("runner ready",
		"shell", cfg.Shell.Path,
		"history_max", cfg.History.MaxEntries,
		"line_buffer_bytes", cfg.Runner.LineBufferBytes,
	)
	return runner, nil
}

// transcriptSink appends every piece of output to a file.
type transcriptSink struct {
	mu  sync.Mutex
	w   io.WriteCloser
	log pslog.Logger
}

func openTranscript(path string, logger pslog.Logger) (*transcriptSink, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transcript dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	logger.Info("transcript enabled", "path", path)
	return &transcriptSink{w: f, log: logger}, nil
}

func (t *transcriptSink) OnOutput(event schema.OutputEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, event.Text); err != nil {
		t.log.Warn("transcript write failed", "err", err)
	}
}

func (t *transcriptSink) OnRunEvent(schema.RunEvent) {}

func (t *transcriptSink) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Close()
}

// sinkOrNil avoids storing a typed nil pointer in the EventSink interface.
func sinkOrNil(t *transcriptSink) core.EventSink {
	if t == nil {
		return nil
	}
	return t
}
