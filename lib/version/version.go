// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// build is the resolved build stamp.
type build struct {
	commit string
	dirty  bool
	time   string
}

var resolve = sync.OnceValue(func() build {
	info, _ := debug.ReadBuildInfo()
	return resolveBuild(info)
})

// resolveBuild prefers the -ldflags values and fills whatever they
// left unset from the toolchain's VCS settings.
func resolveBuild(info *debug.BuildInfo) build {
	result := build{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if info == nil {
		return result
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	if result.commit == "unknown" {
		if revision := settings["vcs.revision"]; revision != "" {
			if len(revision) > 7 {
				revision = revision[:7]
			}
			result.commit = revision
			result.dirty = settings["vcs.modified"] == "true"
		}
	}
	if result.time == "unknown" && settings["vcs.time"] != "" {
		result.time = settings["vcs.time"]
	}
	return result
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	stamp := resolve()
	dirty := ""
	if stamp.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, stamp.commit, dirty, stamp.time)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA.
func Commit() string {
	return resolve().commit
}
