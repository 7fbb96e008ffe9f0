// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for keyweave binaries. It is
// one of the two places allowed to write to stderr directly (the other
// is lib/version): errors that escape run() are reported here because
// the structured logger may not exist yet.
package process
