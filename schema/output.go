package schema

import "fmt"

// StoppedExitCode is reported for runs that were stopped or killed by a signal.
const StoppedExitCode = -1

// StoppedTrailer is appended when a run ends because of a stop request.
const StoppedTrailer = "\n[STOPPED BY USER]\n"

// ExitTrailer returns the trailer appended when a run ends on its own.
func ExitTrailer(code int) string {
	return fmt.Sprintf("\n[Process exited with code: %d]\n", code)
}

// CommandEcho is the line written before any output of a run.
func CommandEcho(command string) string {
	return "$ " + command + "\n"
}

// TimestampPrefix wraps a formatted timestamp for the echo line.
func TimestampPrefix(ts string) string {
	return "[" + ts + "] "
}

// InteractiveWarning is written after the echo for commands that are likely
// to block on a terminal prompt.
const InteractiveWarning = "[WARNING] This command may require interactive input (like passwords).\n" +
	"[WARNING] Interactive input is not supported. The command may hang or fail.\n" +
	"[TIP] For sudo, use: sudo -S (reads password from stdin) or configure NOPASSWD in sudoers.\n\n"

// ErrorLine formats an error line for the output buffer.
func ErrorLine(msg string) string {
	return "[ERROR] " + msg + "\n"
}
