// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package board describes keyboard geometry and matrix wiring.
//
// A board is a zero-size type implementing [Geometry]; firmware entry
// points are instantiated with it, so the row, column, and layer counts
// are fixed where the board is declared:
//
//	type macropad struct{}
//
//	func (macropad) Rows() int   { return 3 }
//	func (macropad) Cols() int   { return 4 }
//	func (macropad) Layers() int { return 2 }
//
//	firmware.Run[macropad](ctx, driver, inputs, outputs, nil, grid, id, def)
//
// The wiring direction is a build-time choice. Building with the
// col2row tag makes the rows the input axis (diodes pointing from
// column to row); the default build reads the columns.
package board
