// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor keeps a group of jobs running forever.
//
// A [Branch] tree describes the group: [Task] names a job and [Select]
// races its children. [Race] starts every job, takes the first to
// return, cancels the rest, and waits for them to stop, so two
// generations of a job never overlap. When several jobs have returned
// by the time the race looks, the leftmost in the tree is blamed.
//
// [Supervisor.Run] logs the dead job at error level, pauses one second
// on its clock, and races a freshly built tree. There is no
// per-job retry and no failure is fatal. A job that panics is
// reported as dead with [ErrPanicked].
package supervisor
