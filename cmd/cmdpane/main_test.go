package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/cmdpane/schema"
	"pkt.systems/pslog"
)

func testContext(buf *bytes.Buffer) context.Context {
	logger := pslog.NewWithOptions(buf, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	return pslog.ContextWithLogger(context.Background(), logger)
}

func TestRootHasCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"console": false, "run": false, "examples": false, "init": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	var logs bytes.Buffer
	ctx := testContext(&logs)
	if got := exitCode(ctx, nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := exitCode(ctx, &exitError{code: 3}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if logs.Len() != 0 {
		t.Fatalf("child exit status must not be logged: %s", logs.String())
	}
	if got := exitCode(ctx, errors.New("boom")); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if !strings.Contains(logs.String(), "cmdpane command failed") {
		t.Fatalf("expected failure log, got %s", logs.String())
	}
}

func TestInitAndExamplesCommands(t *testing.T) {
	var logs bytes.Buffer
	path := filepath.Join(t.TempDir(), "config.yaml")

	root := newRootCmd()
	root.SetArgs([]string{"init", "-c", path})
	if err := root.ExecuteContext(testContext(&logs)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	root = newRootCmd()
	root.SetArgs([]string{"init", "-c", path})
	if err := root.ExecuteContext(testContext(&logs)); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}

	var out bytes.Buffer
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"examples", "-c", path})
	if err := root.ExecuteContext(testContext(&logs)); err != nil {
		t.Fatalf("examples: %v", err)
	}
	if !strings.Contains(out.String(), "ls -la") {
		t.Fatalf("expected example listing, got %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), " v") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestStreamSinkClosesOnFinish(t *testing.T) {
	var out bytes.Buffer
	var logs bytes.Buffer
	sink := newStreamSink(&out, pslog.NewWithOptions(&logs, pslog.Options{Mode: pslog.ModeStructured}))
	sink.OnOutput(schema.OutputEvent{Text: "hello\n"})
	sink.OnRunEvent(schema.RunEvent{Type: schema.RunEventStarted})
	select {
	case <-sink.done:
		t.Fatalf("done closed too early")
	default:
	}
	sink.OnRunEvent(schema.RunEvent{Type: schema.RunEventFinished})
	sink.OnRunEvent(schema.RunEvent{Type: schema.RunEventFailed})
	<-sink.done
	if out.String() != "hello\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
