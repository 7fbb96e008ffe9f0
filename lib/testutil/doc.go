// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared across keyweave packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern. They are the only place tests wait on
// wall-clock time; everything else that is timed runs on a
// clock.FakeClock. The timeout is a hang guard, not an assertion.
//
// [RecordingHandler] is a slog.Handler that forwards records to a
// channel so tests can assert on log output in order.
package testutil
