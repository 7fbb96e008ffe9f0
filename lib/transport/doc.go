// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the HID link between the keyboard and its host.
//
// A [Driver] moves reports over USB or radio. [Device] wraps one driver
// for the lifetime of the process and derives the handles the other
// services consume: [Writer] for keyboard and consumer input reports,
// [Reader] for the host's LED output reports, and [Channel] for remote
// configuration packets. Package loopback provides an in-process
// driver for tests and the simulator.
package transport
