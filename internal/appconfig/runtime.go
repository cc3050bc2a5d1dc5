package appconfig

import (
	"os"
	"sort"
	"strings"
	"time"

	"pkt.systems/cmdpane/core"
	"pkt.systems/cmdpane/internal/proc"
)

// RunnerConfig converts the runner section into core timings.
func (c Config) RunnerConfig() core.RunnerConfig {
	return core.RunnerConfig{
		HistoryMax:       c.History.MaxEntries,
		LineBufferSize:   c.Runner.LineBufferBytes,
		PollInterval:     millis(c.Runner.PollIntervalMS),
		StopPollInterval: millis(c.Runner.StopPollIntervalMS),
		StopPollAttempts: c.Runner.StopPollAttempts,
		KillGrace:        millis(c.Runner.KillGraceMS),
	}
}

// SpawnConfig converts the shell section into spawner settings. Env entries
// override the inherited environment.
func (c Config) SpawnConfig() proc.Config {
	cfg := proc.Config{
		Shell: c.Shell.Path,
		Dir:   c.Shell.Dir,
		Nice:  c.Shell.Nice,
	}
	if len(c.Shell.Env) > 0 {
		keys := make([]string, 0, len(c.Shell.Env))
		for key := range c.Shell.Env {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		env := os.Environ()
		for _, key := range keys {
			env = append(filterEnv(env, key), key+"="+c.Shell.Env[key])
		}
		cfg.Env = env
	}
	return cfg
}

// FrameInterval is the console redraw period.
func (c Config) FrameInterval() time.Duration {
	return millis(c.Console.FrameIntervalMS)
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func filterEnv(env []string, key string) []string {
	prefix := key + "="
	out := env[:0:0]
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			continue
		}
		out = append(out, entry)
	}
	return out
}
