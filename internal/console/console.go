// Package console is a line-driven terminal front end for the command runner.
// It polls the runner once per frame and prints whatever output is new.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"pkt.systems/cmdpane/internal/command"
	"pkt.systems/cmdpane/internal/eventbus"
	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

const defaultFrameInterval = 33 * time.Millisecond

// Runner is what the console needs from core.Runner.
type Runner interface {
	command.Runner
	ConsumeScrollHint() bool
}

// Config controls the console.
type Config struct {
	FrameInterval time.Duration
	Color         bool
	Theme         string
	Prompt        string
	Handler       command.HandlerConfig
}

// Deps are the console collaborators. Runner is required.
type Deps struct {
	Runner Runner
	Events *eventbus.Bus
	In     io.Reader
	Out    io.Writer
	Logger pslog.Logger
}

// Console drives a runner from line input.
type Console struct {
	cfg      Config
	runner   Runner
	events   *eventbus.Bus
	in       io.Reader
	out      io.Writer
	log      pslog.Logger
	render   *renderer
	handler  *command.Handler
	prompted bool
}

// New constructs a console.
func New(cfg Config, deps Deps) (*Console, error) {
	if deps.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "cmdpane> "
	}
	in := deps.In
	if in == nil {
		in = os.Stdin
	}
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	log := deps.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	c := &Console{
		cfg:    cfg,
		runner: deps.Runner,
		events: deps.Events,
		in:     in,
		out:    out,
		log:    log,
	}
	var th *theme
	if cfg.Color && isTerminal(out) {
		t := themeForName(cfg.Theme)
		th = &t
	}
	c.render = newRenderer(out, th)
	c.handler = command.NewHandler(deps.Runner, c, cfg.Handler)
	return c, nil
}

// Notice prints a console message outside the command output.
func (c *Console) Notice(line string) {
	if err := c.render.meta(line); err != nil {
		c.log.Debug("console write failed", "err", err)
	}
}

// Run reads commands until /quit, end of input, or ctx is done. Any active
// command is stopped before Run returns.
func (c *Console) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = pslog.ContextWithLogger(ctx, c.log)
	done := make(chan struct{})
	defer close(done)
	lines := readLines(c.in, done)

	var runEvents <-chan eventbus.Event
	if c.events != nil {
		ch, cancel := c.events.Subscribe(eventbus.OnlyRun)
		defer cancel()
		runEvents = ch
	}

	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()
	defer c.runner.Stop(context.Background())

	c.log.Info("console start", "frame_ms", c.cfg.FrameInterval.Milliseconds())
	c.prompt()
	for {
		select {
		case <-ctx.Done():
			c.frame()
			c.log.Info("console stop", "reason", "context")
			return nil
		case <-ticker.C:
			c.frame()
			if runEvents == nil && !c.prompted && !c.runner.Snapshot().Running {
				c.prompt()
			}
		case event, ok := <-runEvents:
			if !ok {
				runEvents = nil
				continue
			}
			c.onRunEvent(event.Run)
		case line, ok := <-lines:
			if !ok {
				c.runner.Stop(ctx)
				c.frame()
				c.log.Info("console stop", "reason", "eof")
				return nil
			}
			c.prompted = false
			c.render.lineStart = true
			res, err := c.handler.Handle(ctx, line)
			c.frame()
			if err != nil {
				c.Notice("error: " + err.Error())
			}
			if res.Quit {
				c.runner.Stop(ctx)
				c.frame()
				c.log.Info("console stop", "reason", "quit")
				return nil
			}
			if !c.runner.Snapshot().Running {
				c.prompt()
			}
		}
	}
}

func (c *Console) frame() {
	if !c.runner.ConsumeScrollHint() {
		return
	}
	if _, err := c.render.Frame(c.runner.Snapshot()); err != nil {
		c.log.Debug("console write failed", "err", err)
	}
}

func (c *Console) onRunEvent(event schema.RunEvent) {
	switch event.Type {
	case schema.RunEventFinished, schema.RunEventFailed:
		c.frame()
		snap := c.runner.Snapshot()
		if snap.Last != nil && snap.Last.RunID == event.RunID {
			c.Notice(fmt.Sprintf("(%s)", snap.Last.Duration.Round(time.Millisecond)))
		}
		if !snap.Running {
			c.prompt()
		}
	}
}

func (c *Console) prompt() {
	if c.prompted {
		return
	}
	c.prompted = true
	if err := c.render.breakLine(); err != nil {
		return
	}
	_, _ = io.WriteString(c.out, c.cfg.Prompt)
	c.render.lineStart = false
}

// readLines feeds input lines into a channel that closes at end of input.
// A read already blocked on a terminal stays blocked after done closes.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
