package appconfig

import (
	"os"
	"path/filepath"
	"runtime"

	"pkt.systems/cmdpane/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Shell         ShellConfig      `mapstructure:"shell" yaml:"shell"`
	Runner        RunnerConfig     `mapstructure:"runner" yaml:"runner"`
	History       HistoryConfig    `mapstructure:"history" yaml:"history"`
	Console       ConsoleConfig    `mapstructure:"console" yaml:"console"`
	Examples      []schema.Example `mapstructure:"examples" yaml:"examples"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ShellConfig controls how commands are spawned.
type ShellConfig struct {
	Path string            `mapstructure:"path" yaml:"path"`
	Dir  string            `mapstructure:"dir" yaml:"dir"`
	Nice int               `mapstructure:"nice" yaml:"nice"`
	Env  map[string]string `mapstructure:"env" yaml:"env"`
}

// RunnerConfig controls output polling and termination timings.
type RunnerConfig struct {
	LineBufferBytes    int `mapstructure:"line_buffer_bytes" yaml:"line_buffer_bytes"`
	PollIntervalMS     int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	StopPollAttempts   int `mapstructure:"stop_poll_attempts" yaml:"stop_poll_attempts"`
	StopPollIntervalMS int `mapstructure:"stop_poll_interval_ms" yaml:"stop_poll_interval_ms"`
	KillGraceMS        int `mapstructure:"kill_grace_ms" yaml:"kill_grace_ms"`
}

// HistoryConfig bounds the in-memory command history.
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries"`
}

// ConsoleConfig controls the interactive console.
type ConsoleConfig struct {
	FrameIntervalMS int    `mapstructure:"frame_interval_ms" yaml:"frame_interval_ms"`
	Timestamps      bool   `mapstructure:"timestamps" yaml:"timestamps"`
	Color           bool   `mapstructure:"color" yaml:"color"`
	Theme           string `mapstructure:"theme" yaml:"theme"`
}

// DefaultConfig returns a config populated with defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Shell: ShellConfig{
			Path: defaultShell(),
		},
		Runner: RunnerConfig{
			LineBufferBytes:    1024,
			PollIntervalMS:     10,
			StopPollAttempts:   10,
			StopPollIntervalMS: 50,
			KillGraceMS:        100,
		},
		History: HistoryConfig{
			MaxEntries: 50,
		},
		Console: ConsoleConfig{
			FrameIntervalMS: 33,
			Timestamps:      false,
			Color:           true,
			Theme:           "outrun",
		},
		Examples: DefaultExamples(),
	}, nil
}

// DefaultExamples returns the stock example commands.
func DefaultExamples() []schema.Example {
	examples := []schema.Example{
		{Label: "List files", Command: "ls -la"},
		{Label: "System info", Command: "uname -a"},
		{Label: "Disk usage", Command: "df -h"},
		{Label: "Process list", Command: "ps aux | head -20"},
		{Label: "Ping test", Command: "ping -c 5 8.8.8.8"},
	}
	if runtime.GOOS != "windows" {
		examples = append(examples, schema.Example{Label: "Update packages", Command: "sudo apt update"})
	}
	return examples
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "/bin/sh"
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cmdpane", "config.yaml"), nil
}
