// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every timed loop in the
// firmware: the matrix scan ticker and the supervisor's restart pause.
//
// Components take a [Clock] instead of calling the time package. The
// device build and the host simulator pass [Real]; tests pass a
// [FakeClock] and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go supervisor.Run(ctx, build)
//	c.WaitForTimers(1)      // the restart pause has been armed
//	c.Advance(time.Second)  // and now it elapses
//
// WaitForTimers closes the window between a goroutine arming a timer
// and the test advancing past it.
package clock
