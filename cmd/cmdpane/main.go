package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	return exitCode(ctx, root.ExecuteContext(ctx))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cmdpane",
		Short:         "Run shell commands in the background and watch their output",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newConsoleCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newExamplesCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// exitError carries a child exit status out of a command without logging it
// as a failure of cmdpane itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "command exited with a non-zero status"
}

func exitCode(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	pslog.Ctx(ctx).With("err", err).Error("cmdpane command failed")
	return 1
}
