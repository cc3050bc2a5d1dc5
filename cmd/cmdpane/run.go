package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/internal/appconfig"
	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

// streamSink copies output to a writer and signals when the run is over.
type streamSink struct {
	mu   sync.Mutex
	out  io.Writer
	log  pslog.Logger
	done chan struct{}
	once sync.Once
}

func newStreamSink(out io.Writer, logger pslog.Logger) *streamSink {
	return &streamSink{out: out, log: logger, done: make(chan struct{})}
}

func (s *streamSink) OnOutput(event schema.OutputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.out, event.Text); err != nil {
		s.log.Debug("run output write failed", "err", err)
	}
}

func (s *streamSink) OnRunEvent(event schema.RunEvent) {
	switch event.Type {
	case schema.RunEventFinished, schema.RunEventFailed:
		s.once.Do(func() { close(s.done) })
	}
}

func newRunCmd() *cobra.Command {
	var cfgPath string
	var timestamps bool
	var transcript string
	cmd := &cobra.Command{
		Use:   "run [flags] -- <command...>",
		Short: "Run one command, stream its output and exit with its status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			tx, err := openTranscript(transcript, logger)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Close() }()

			code, err := runOnce(cmd.Context(), cfg, strings.Join(args, " "), timestamps, cmd.OutOrStdout(), sinkOrNil(tx), logger)
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "prefix the run with its start time")
	cmd.Flags().StringVar(&transcript, "transcript", "", "append all output to this file")
	return cmd
}

// runOnce runs command to completion and returns the process exit status.
// Stopped, signalled and unspawnable runs report 1.
func runOnce(ctx context.Context, cfg appconfig.Config, command string, timestamps bool, out io.Writer, extra core.EventSink, logger pslog.Logger) (int, error) {
	sink := newStreamSink(out, logger)
	runner, err := newRunner(cfg, core.MultiSink(sink, extra), logger)
	if err != nil {
		return 1, err
	}
	defer func() { _ = runner.Close() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Start(ctx, command, timestamps); err != nil {
		if errors.Is(err, schema.ErrEmptyCommand) {
			return 1, errors.New("command is required")
		}
		return 1, err
	}
	select {
	case <-sink.done:
	case <-ctx.Done():
		logger.Info("run interrupted; stopping command")
		runner.Stop(context.Background())
	}

	last := runner.Snapshot().Last
	switch {
	case last == nil, last.Error != "", last.Stopped, last.ExitCode < 0:
		return 1, nil
	default:
		return last.ExitCode, nil
	}
}
