package console

import (
	"io"
	"strings"

	"pkt.systems/cmdpane/schema"
)

type lineKind int

const (
	lineNormal lineKind = iota
	lineEcho
	lineError
	lineWarn
	lineOK
)

// renderer writes only what changed in the output buffer since the last
// frame. A new generation means the buffer was reset and is replayed from
// the start.
type renderer struct {
	out       io.Writer
	theme     *theme
	gen       uint64
	offset    int
	started   bool
	lineStart bool
}

func newRenderer(out io.Writer, th *theme) *renderer {
	return &renderer{out: out, theme: th, lineStart: true}
}

// Frame renders snap and returns the number of new output bytes.
func (r *renderer) Frame(snap schema.Snapshot) (int, error) {
	if !r.started || snap.Generation != r.gen {
		cleared := r.started && r.offset > 0 && snap.Output == ""
		r.started = true
		r.gen = snap.Generation
		r.offset = 0
		if err := r.breakLine(); err != nil {
			return 0, err
		}
		if cleared {
			if err := r.meta("(output cleared)"); err != nil {
				return 0, err
			}
		}
	}
	if len(snap.Output) < r.offset {
		r.offset = 0
	}
	delta := snap.Output[r.offset:]
	r.offset = len(snap.Output)
	if delta == "" {
		return 0, nil
	}
	text := r.paint(delta)
	r.lineStart = strings.HasSuffix(delta, "\n")
	_, err := io.WriteString(r.out, text)
	return len(delta), err
}

// meta writes a dimmed notice line.
func (r *renderer) meta(line string) error {
	if err := r.breakLine(); err != nil {
		return err
	}
	if r.theme != nil {
		line = ansiDim + ansiFgRGB(r.theme.MetaFG) + line + ansiReset
	}
	_, err := io.WriteString(r.out, line+"\n")
	return err
}

// breakLine ends a partial line so the next write starts on a fresh one.
func (r *renderer) breakLine() error {
	if r.lineStart {
		return nil
	}
	r.lineStart = true
	_, err := io.WriteString(r.out, "\n")
	return err
}

func (r *renderer) paint(delta string) string {
	if r.theme == nil {
		return delta
	}
	var b strings.Builder
	atStart := r.lineStart
	for len(delta) > 0 {
		line := delta
		nl := ""
		if i := strings.IndexByte(delta, '\n'); i >= 0 {
			line = delta[:i]
			nl = "\n"
			delta = delta[i+1:]
		} else {
			delta = ""
		}
		kind := lineNormal
		if atStart {
			kind = classifyLine(line)
		}
		if style := r.style(kind); style != "" && line != "" {
			b.WriteString(style)
			b.WriteString(line)
			b.WriteString(ansiReset)
		} else {
			b.WriteString(line)
		}
		b.WriteString(nl)
		atStart = nl != ""
	}
	return b.String()
}

func (r *renderer) style(kind lineKind) string {
	switch kind {
	case lineEcho:
		return ansiBold + ansiFgRGB(r.theme.EchoFG)
	case lineError:
		return ansiFgRGB(r.theme.ErrorFG)
	case lineWarn:
		return ansiFgRGB(r.theme.WarnFG)
	case lineOK:
		return ansiFgRGB(r.theme.OKFG)
	default:
		return ""
	}
}

func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[ERROR]"):
		return lineError
	case strings.HasPrefix(line, "[WARNING]"), strings.HasPrefix(line, "[TIP]"):
		return lineWarn
	case line+"\n" == strings.TrimPrefix(schema.StoppedTrailer, "\n"):
		return lineWarn
	case line+"\n" == strings.TrimPrefix(schema.ExitTrailer(0), "\n"):
		return lineOK
	case strings.HasPrefix(line, "[Process exited with code: "):
		return lineError
	case strings.HasPrefix(line, "$ "), isTimestampedEcho(line):
		return lineEcho
	default:
		return lineNormal
	}
}

// isTimestampedEcho matches "[HH:MM:SS.mmm] $ ...".
func isTimestampedEcho(line string) bool {
	const stamp = len("[00:00:00.000] ")
	return len(line) > stamp+1 && line[0] == '[' && line[13] == ']' && line[stamp:stamp+2] == "$ "
}
