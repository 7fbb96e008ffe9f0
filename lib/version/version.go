// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
)

// Set with -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set by hand for releases.
	Version = "0.1.0-dev"
)

// Build describes the running binary.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Time    string
}

// Current returns the build information injected at link time.
func Current() Build {
	return Build{
		Version: Version,
		Commit:  GitCommit,
		Dirty:   GitDirty == "true",
		Time:    BuildTime,
	}
}

// String returns the one-line form used for --version, for example
// "0.1.0-dev (abc1234-dirty, 2026-10-16T00:00:00Z)".
func (b Build) String() string {
	commit := b.Commit
	if b.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", b.Version, commit, b.Time)
}

// LogValue groups the build fields under one log attribute.
func (b Build) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.Bool("dirty", b.Dirty),
	)
}

// Info returns Current().String().
func Info() string { return Current().String() }

// Print writes the binary name, Info, and the Go toolchain and platform
// to stdout.
func Print(name string) { Fprint(os.Stdout, name) }

// Fprint is Print to w.
func Fprint(w io.Writer, name string) {
	fmt.Fprintf(w, "%s %s\n  Go: %s\n  Platform: %s/%s\n",
		name, Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
