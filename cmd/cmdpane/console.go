package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/internal/appconfig"
	"pkt.systems/cmdpane/internal/command"
	"pkt.systems/cmdpane/internal/console"
	"pkt.systems/cmdpane/internal/eventbus"
	"pkt.systems/pslog"
)

func newConsoleCmd() *cobra.Command {
	var cfgPath string
	var timestamps bool
	var noColor bool
	var theme string
	var transcript string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Start the interactive command console",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timestamps") {
				cfg.Console.Timestamps = timestamps
			}
			if noColor {
				cfg.Console.Color = false
			}
			if theme != "" {
				cfg.Console.Theme = theme
			}

			tx, err := openTranscript(transcript, logger)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Close() }()

			bus := eventbus.New(logger)
			runner, err := newRunner(cfg, core.MultiSink(bus, sinkOrNil(tx)), logger)
			if err != nil {
				return err
			}
			defer func() { _ = runner.Close() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stopSignals := interruptStops(ctx, runner, cancel, logger)
			defer stopSignals()

			c, err := console.New(console.Config{
				FrameInterval: cfg.FrameInterval(),
				Color:         cfg.Console.Color,
				Theme:         cfg.Console.Theme,
				Handler: command.HandlerConfig{
					Examples:   cfg.Examples,
					Timestamps: cfg.Console.Timestamps,
				},
			}, console.Deps{
				Runner: runner,
				Events: bus,
				In:     cmd.InOrStdin(),
				Out:    cmd.OutOrStdout(),
				Logger: logger,
			})
			if err != nil {
				return err
			}
			return c.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "prefix each run with its start time")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&theme, "theme", "", "color theme (outrun, gruvbox, tokyo-midnight)")
	cmd.Flags().StringVar(&transcript, "transcript", "", "append all output to this file")
	return cmd
}

// interruptStops makes Ctrl-C stop the running command, or leave the console
// when nothing is running. SIGTERM always leaves.
func interruptStops(ctx context.Context, runner *core.Runner, cancel context.CancelFunc, logger pslog.Logger) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case sig := <-sigCh:
				if sig == syscall.SIGINT && runner.Running() {
					logger.Info("console interrupt; stopping command")
					go runner.Stop(ctx)
					continue
				}
				logger.Info("console signal; exiting", "signal", sig.String())
				cancel()
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
