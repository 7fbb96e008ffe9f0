// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "time"

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test naming what it waited for.
//
//	report := testutil.RequireReceive(t, host.KeyboardReports(), 5*time.Second, "keyboard report")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, what string) T {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed without a value", what)
		}
		return v
	case <-deadline.C:
		t.Fatalf("%s: nothing received after %v", what, timeout)
	}
	var zero T
	return zero
}

// RequireSend sends v on ch within timeout, or fails the test.
func RequireSend[T any](t TB, ch chan<- T, v T, timeout time.Duration, what string) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case ch <- v:
	case <-deadline.C:
		t.Fatalf("%s: not accepted after %v", what, timeout)
	}
}

// RequireClosed waits until ch is closed or delivers, or fails the
// test.
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-ch:
	case <-deadline.C:
		t.Fatalf("%s: still open after %v", what, timeout)
	}
}
