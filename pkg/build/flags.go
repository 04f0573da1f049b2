// SPDX-License-Identifier: MIT
//
// Package build provides the application's build metadata: name, build
// timestamp, Git commit and semantic version. Values are normally injected
// with -ldflags at compile time; anything left unset is recovered from the
// module build info the Go toolchain embeds in every binary.
package build

import (
	"fmt"
	"runtime/debug"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "practice",
		Description: "Real-time tuner, chord finder, tempo detector and metronome",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}

	readBuildInfo = debug.ReadBuildInfo
)

// Initialize copies the ldflags values into the build flags, filling gaps
// from the embedded module build info. It returns an error naming the
// first value neither source could provide.
func Initialize() error {
	name, ts, commit, version := buildName, buildTime, buildCommit, buildVersion

	if info, ok := readBuildInfo(); ok {
		if name == "" && info.Main.Path != "" {
			name = info.Main.Path
		}
		if version == "" && info.Main.Version != "" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if ts == "" {
					ts = s.Value
				}
			}
		}
	}

	if name == "" {
		return fmt.Errorf("BuildName is required")
	}
	if ts == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if commit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if version == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = name
	buildFlags.Time = ts
	buildFlags.Commit = commit
	buildFlags.Version = version

	return nil
}

// GetBuildFlags returns the current build information. Before Initialize
// succeeds the fields hold placeholder values.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String renders a one-line version banner.
func (f *ldFlags) String() string {
	commit := f.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s %s (%s, built %s)", f.Name, f.Version, commit, f.Time)
}
