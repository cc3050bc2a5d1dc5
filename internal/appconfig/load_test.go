package appconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/cmdpane/schema"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.History.MaxEntries != 50 || cfg.Runner.PollIntervalMS != 10 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
history:
  max_entries: 10
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 9
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
runner:
  poll_interval_ms: 0
`)
	_, err := Load(path)
	if !errors.Is(err, schema.ErrInvalidConfig) || !strings.Contains(err.Error(), "runner.poll_interval_ms") {
		t.Fatalf("expected invalid poll interval, got %v", err)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
shell:
  path: /bin/bash
history:
  max_entries: 5
examples:
  - label: Uptime
    command: uptime
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Shell.Path != "/bin/bash" || cfg.History.MaxEntries != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Examples) != 1 || cfg.Examples[0].Command != "uptime" {
		t.Fatalf("unexpected examples: %+v", cfg.Examples)
	}
	if cfg.Runner.KillGraceMS != 100 {
		t.Fatalf("expected default kill grace, got %d", cfg.Runner.KillGraceMS)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CMDPANE_HISTORY_MAX_ENTRIES", "7")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.History.MaxEntries != 7 {
		t.Fatalf("expected env override, got %d", cfg.History.MaxEntries)
	}
}

func TestLoadExpandsShellPath(t *testing.T) {
	t.Setenv("CMDPANE_TEST_SHELL_DIR", "/opt/shells")
	path := writeConfig(t, `
config_version: 1
shell:
  path: ${CMDPANE_TEST_SHELL_DIR}/sh
  dir: $CMDPANE_UNSET_FOR_TEST/work
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Shell.Path != "/opt/shells/sh" {
		t.Fatalf("expected expanded shell path, got %q", cfg.Shell.Path)
	}
	if cfg.Shell.Dir != "$CMDPANE_UNSET_FOR_TEST/work" {
		t.Fatalf("expected unknown var kept, got %q", cfg.Shell.Dir)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected %s, got %s", path, written)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	def, _ := DefaultConfig()
	if cfg.Runner != def.Runner || cfg.History != def.History || len(cfg.Examples) != len(def.Examples) {
		t.Fatalf("round trip mismatch: %+v", cfg)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
