// Package proc spawns shell commands with merged output for the core runner.
package proc

import (
	"strings"

	"pkt.systems/cmdpane/core"
	"pkt.systems/pslog"
)

// Config controls how commands are spawned.
type Config struct {
	// Shell runs the command string. Empty means DefaultShell.
	Shell string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
	// Nice adjusts the child's scheduling priority on unix. Zero leaves it alone.
	Nice int
}

// Spawner starts commands through the platform shell.
type Spawner struct {
	cfg Config
	log pslog.Logger
}

var _ core.Spawner = (*Spawner)(nil)

// NewSpawner constructs a spawner. A nil logger disables spawn logging.
func NewSpawner(cfg Config, log pslog.Logger) *Spawner {
	return &Spawner{cfg: cfg, log: log}
}

func (s *Spawner) shell() string {
	if shell := strings.TrimSpace(s.cfg.Shell); shell != "" {
		return shell
	}
	return DefaultShell
}
