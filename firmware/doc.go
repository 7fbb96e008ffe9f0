// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package firmware is the keyboard's main loop.
//
// [Run], [RunWithConfig], and [RunWithAsyncFlash] are the entry points,
// from most to least convenient; each fills in what the next needs.
// All are generic over the board geometry, a zero-size type
// implementing board.Geometry:
//
//	type Macropad struct{}
//
//	func (Macropad) Rows() int   { return 2 }
//	func (Macropad) Cols() int   { return 3 }
//	func (Macropad) Layers() int { return 2 }
//
//	firmware.Run[Macropad](ctx, driver, inputs, outputs, nil, defaults, id, definition)
//
// Startup bootstraps the one shared keymap from flash (or defaults),
// builds the transport, scan, remote configuration, and status
// services, and hands them to a supervisor. The supervisor races
// transport and keyboard as a pair against persistence, status, and
// config, and restarts the whole group one second after any job
// returns. Services are never rebuilt, so their state survives
// restarts.
package firmware
