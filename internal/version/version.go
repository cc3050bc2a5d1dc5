// Package version reports the build version of cmdpane.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/cmdpane"

const unknownVersion = "v0.0.0-unknown"

// buildVersion is set via -ldflags "-X pkt.systems/cmdpane/internal/version.buildVersion=...".
var buildVersion = ""

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Module   string
	Version  string
	Revision string
	Time     time.Time
	Dirty    bool
}

// Get collects version information from ldflags and build info.
func Get() Info {
	out := Info{Module: defaultModule, Version: unknownVersion}
	info, ok := readBuildInfo()
	if ok && info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		out.Revision, out.Time, out.Dirty = vcsSettings(info)
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			out.Version = v
		} else if v := pseudoVersion(out.Revision, out.Time); v != "" {
			out.Version = v
		}
	}
	if v := strings.TrimSpace(buildVersion); v != "" {
		out.Version = v
	}
	out.Version = strings.TrimSuffix(out.Version, "+dirty")
	return out
}

// Current returns the best available version string without a dirty suffix.
func Current() string {
	return Get().Version
}

// Module returns the module path from build info when available.
func Module() string {
	return Get().Module
}

// String renders the version line printed by the CLI.
func (i Info) String() string {
	line := i.Module + " " + i.Version
	if i.Dirty {
		line += "+dirty"
	}
	return line
}

func vcsSettings(info *debug.BuildInfo) (revision string, ts time.Time, modified bool) {
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				ts = parsed
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, ts, modified
}

func pseudoVersion(revision string, ts time.Time) string {
	if revision == "" || ts.IsZero() {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return "v0.0.0-" + ts.UTC().Format("20060102150405") + "-" + revision
}
