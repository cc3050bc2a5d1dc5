package core

import "strings"

// LooksInteractive reports whether command probably waits for terminal input
// (a password prompt and the like). Plain substring matching: "-S" or
// "NOPASSWD" anywhere on the line counts, comments included.
func LooksInteractive(command string) bool {
	if strings.Contains(command, "sudo") &&
		!strings.Contains(command, "-S") &&
		!strings.Contains(command, "NOPASSWD") {
		return true
	}
	return strings.Contains(command, "ssh") ||
		strings.Contains(command, "passwd") ||
		strings.Contains(command, "su ")
}
