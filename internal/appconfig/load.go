package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/cmdpane/schema"
)

// EnvPrefix prefixes environment overrides, e.g. CMDPANE_SHELL_PATH.
const EnvPrefix = "CMDPANE"

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("shell.path", cfg.Shell.Path)
	v.SetDefault("shell.dir", cfg.Shell.Dir)
	v.SetDefault("shell.nice", cfg.Shell.Nice)
	v.SetDefault("shell.env", cfg.Shell.Env)
	v.SetDefault("runner.line_buffer_bytes", cfg.Runner.LineBufferBytes)
	v.SetDefault("runner.poll_interval_ms", cfg.Runner.PollIntervalMS)
	v.SetDefault("runner.stop_poll_attempts", cfg.Runner.StopPollAttempts)
	v.SetDefault("runner.stop_poll_interval_ms", cfg.Runner.StopPollIntervalMS)
	v.SetDefault("runner.kill_grace_ms", cfg.Runner.KillGraceMS)
	v.SetDefault("history.max_entries", cfg.History.MaxEntries)
	v.SetDefault("console.frame_interval_ms", cfg.Console.FrameIntervalMS)
	v.SetDefault("console.timestamps", cfg.Console.Timestamps)
	v.SetDefault("console.color", cfg.Console.Color)
	v.SetDefault("console.theme", cfg.Console.Theme)
	v.SetDefault("examples", cfg.Examples)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range value in cfg.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Shell.Path) == "" {
		return fmt.Errorf("%w: shell.path is required", schema.ErrInvalidConfig)
	}
	if cfg.Shell.Nice < -20 || cfg.Shell.Nice > 19 {
		return fmt.Errorf("%w: shell.nice must be between -20 and 19", schema.ErrInvalidConfig)
	}
	if cfg.Runner.LineBufferBytes < 2 {
		return fmt.Errorf("%w: runner.line_buffer_bytes must be at least 2", schema.ErrInvalidConfig)
	}
	if cfg.Runner.PollIntervalMS <= 0 {
		return fmt.Errorf("%w: runner.poll_interval_ms must be positive", schema.ErrInvalidConfig)
	}
	if cfg.Runner.StopPollAttempts < 0 {
		return fmt.Errorf("%w: runner.stop_poll_attempts must not be negative", schema.ErrInvalidConfig)
	}
	if cfg.Runner.StopPollIntervalMS <= 0 {
		return fmt.Errorf("%w: runner.stop_poll_interval_ms must be positive", schema.ErrInvalidConfig)
	}
	if cfg.Runner.KillGraceMS <= 0 {
		return fmt.Errorf("%w: runner.kill_grace_ms must be positive", schema.ErrInvalidConfig)
	}
	if cfg.History.MaxEntries <= 0 {
		return fmt.Errorf("%w: history.max_entries must be positive", schema.ErrInvalidConfig)
	}
	if cfg.Console.FrameIntervalMS <= 0 {
		return fmt.Errorf("%w: console.frame_interval_ms must be positive", schema.ErrInvalidConfig)
	}
	for i, example := range cfg.Examples {
		if strings.TrimSpace(example.Command) == "" {
			return fmt.Errorf("%w: examples[%d].command is required", schema.ErrInvalidConfig, i)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Shell.Path = expandEnv(cfg.Shell.Path)
	cfg.Shell.Dir = expandEnv(cfg.Shell.Dir)
	for key, value := range cfg.Shell.Env {
		cfg.Shell.Env[key] = expandEnv(value)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
