// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package board

import "fmt"

// Geometry is implemented by a board's marker type. Implementations
// must return constants.
type Geometry interface {
	Rows() int
	Cols() int
	Layers() int
}

// Dimensions is the value form of a Geometry.
type Dimensions struct {
	Rows   int
	Cols   int
	Layers int
}

// Of returns the dimensions declared by G. It panics when G declares
// a non-positive size.
func Of[G Geometry]() Dimensions {
	var geometry G
	dims := Dimensions{
		Rows:   geometry.Rows(),
		Cols:   geometry.Cols(),
		Layers: geometry.Layers(),
	}
	if err := dims.Validate(); err != nil {
		panic(fmt.Sprintf("board: %T: %v", geometry, err))
	}
	return dims
}

// Validate reports whether every dimension is positive and the layer
// count fits the layer bitmask.
func (d Dimensions) Validate() error {
	if d.Rows <= 0 || d.Cols <= 0 || d.Layers <= 0 {
		return fmt.Errorf("dimensions %dx%dx%d must be positive", d.Rows, d.Cols, d.Layers)
	}
	if d.Layers > MaxLayers {
		return fmt.Errorf("%d layers exceeds the maximum of %d", d.Layers, MaxLayers)
	}
	return nil
}

// MaxLayers bounds the layer count so the active-layer set fits in a
// uint32.
const MaxLayers = 32

// Keys returns the number of positions on one layer.
func (d Dimensions) Keys() int { return d.Rows * d.Cols }

// Size returns the number of actions across all layers.
func (d Dimensions) Size() int { return d.Layers * d.Rows * d.Cols }

// Index returns the flat offset of (layer, row, col), and false when
// any coordinate is out of range.
func (d Dimensions) Index(layer, row, col int) (int, bool) {
	if layer < 0 || layer >= d.Layers || row < 0 || row >= d.Rows || col < 0 || col >= d.Cols {
		return 0, false
	}
	return (layer*d.Rows+row)*d.Cols + col, true
}

// InputCount returns how many input pins the matrix reads.
func (d Dimensions) InputCount() int {
	if Col2Row {
		return d.Rows
	}
	return d.Cols
}

// OutputCount returns how many output pins the matrix drives.
func (d Dimensions) OutputCount() int {
	if Col2Row {
		return d.Cols
	}
	return d.Rows
}

// Position maps an (input, output) pin pair to its (row, col).
func Position(input, output int) (row, col int) {
	if Col2Row {
		return input, output
	}
	return output, input
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.Rows, d.Cols, d.Layers)
}
