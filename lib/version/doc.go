// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for keyweave binaries.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X:
//
//	go build -ldflags "-X github.com/keyweave/keyweave/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Development builds and tests see the defaults, "unknown" and
// "0.1.0-dev".
package version
