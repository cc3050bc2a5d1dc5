//go:build unix

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/cmdpane/internal/appconfig"
	"pkt.systems/pslog"
)

func TestRunOnceReportsExitCode(t *testing.T) {
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	var logs bytes.Buffer
	logger := pslog.NewWithOptions(&logs, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	cases := []struct {
		command string
		code    int
		suffix  string
	}{
		{"echo hi", 0, "[Process exited with code: 0]\n"},
		{"exit 3", 3, "[Process exited with code: 3]\n"},
		{"kill -9 $$", 1, "[Process exited with code: -1]\n"},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		code, err := runOnce(context.Background(), cfg, tc.command, false, &out, nil, logger)
		if err != nil {
			t.Fatalf("%s: %v", tc.command, err)
		}
		if code != tc.code {
			t.Fatalf("%s: expected code %d, got %d", tc.command, tc.code, code)
		}
		if !strings.HasPrefix(out.String(), "$ "+tc.command+"\n") || !strings.HasSuffix(out.String(), tc.suffix) {
			t.Fatalf("%s: unexpected output %q", tc.command, out.String())
		}
	}
}

func TestRunCommandWritesTranscript(t *testing.T) {
	dir := t.TempDir()
	transcript := filepath.Join(dir, "out.log")
	var logs, out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run", "-c", filepath.Join(dir, "missing.yaml"), "--transcript", transcript, "--", "echo", "logged"})
	if err := root.ExecuteContext(testContext(&logs)); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(transcript)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "logged\n") || string(data) != out.String() {
		t.Fatalf("transcript %q does not match output %q", data, out.String())
	}
}

func TestRunCommandPropagatesExitStatus(t *testing.T) {
	var logs bytes.Buffer
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "--", "exit", "4"})
	err := root.ExecuteContext(testContext(&logs))
	if got := exitCode(context.Background(), err); got != 4 {
		t.Fatalf("expected exit status 4, got %d (err=%v)", got, err)
	}
}
