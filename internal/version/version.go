// Package version carries build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/ManuGH/ytrelay/internal/version.Version=...".
var (
	Version = "v0.1.0-dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata on one line. A binary built without
// ldflags falls back to the VCS stamp recorded by the go command.
func String() string {
	commit, date := Commit, Date
	if commit == "unknown" {
		commit, date = fromBuildInfo(commit, date)
	}
	return fmt.Sprintf("ytrelay %s (commit %s, built %s)", Version, commit, date)
}

func fromBuildInfo(commit, date string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				commit = s.Value[:7]
			} else if s.Value != "" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" && s.Value != "" {
				date = s.Value
			}
		}
	}
	return commit, date
}
