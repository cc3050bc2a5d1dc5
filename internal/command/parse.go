package command

import "strings"

// LineKind classifies one line of console input.
type LineKind int

const (
	// LineBlank is whitespace only.
	LineBlank LineKind = iota
	// LineShell runs as a shell command.
	LineShell
	// LineSlash is a console command such as /stop.
	LineSlash
)

// Line is a classified console input line.
type Line struct {
	Kind  LineKind
	Shell string
	Slash Command
}

// Command is a parsed slash command. Remainder keeps the original spacing
// of everything after the name.
type Command struct {
	Name      string
	Args      []string
	Raw       string
	Remainder string
}

// Classify decides how a console line is handled. A leading "!" forces a
// shell command even when the rest starts with "/".
func Classify(input string) Line {
	trimmed := strings.TrimLeft(input, " \t")
	if rest, ok := strings.CutPrefix(trimmed, "!"); ok {
		return Line{Kind: LineShell, Shell: rest}
	}
	if cmd, ok := Parse(input); ok {
		return Line{Kind: LineSlash, Slash: cmd}
	}
	if strings.TrimSpace(input) == "" {
		return Line{Kind: LineBlank}
	}
	return Line{Kind: LineShell, Shell: input}
}

// Parse returns the slash command on the line, if any.
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	rest, ok := strings.CutPrefix(trimmed, "/")
	if !ok {
		return Command{}, false
	}
	raw := strings.TrimSpace(rest)
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, true
	}
	cmd := Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
		Raw:  raw,
	}
	if i := strings.IndexAny(raw, " \t"); i >= 0 {
		cmd.Remainder = strings.TrimSpace(raw[i:])
	}
	return cmd, true
}
