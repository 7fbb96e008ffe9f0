// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package hal defines the digital pin capabilities the firmware drives
// and in-memory implementations of them for tests and the host
// simulator.
package hal

// InputPin is a digital input.
type InputPin interface {
	IsHigh() (bool, error)
}

// OutputPin is a digital output.
type OutputPin interface {
	SetHigh() error
	SetLow() error
}
