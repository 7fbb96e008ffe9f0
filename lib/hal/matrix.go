// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package hal

import (
	"sync"

	"github.com/keyweave/keyweave/lib/board"
)

// Matrix simulates a diode matrix. Its output pins drive lines, its
// input pins read high when a pressed switch connects them to a driven
// line. The wiring direction follows board.Col2Row.
type Matrix struct {
	mu      sync.Mutex
	dims    board.Dimensions
	pressed []bool
	driven  []bool
	fault   error

	inputs  []InputPin
	outputs []OutputPin
}

// NewMatrix returns a matrix with every switch open.
func NewMatrix(dims board.Dimensions) *Matrix {
	m := &Matrix{
		dims:    dims,
		pressed: make([]bool, dims.Keys()),
		driven:  make([]bool, dims.OutputCount()),
	}
	for i := 0; i < dims.InputCount(); i++ {
		m.inputs = append(m.inputs, matrixInput{matrix: m, index: i})
	}
	for i := 0; i < dims.OutputCount(); i++ {
		m.outputs = append(m.outputs, matrixOutput{matrix: m, index: i})
	}
	return m
}

// Inputs returns the input pins in order.
func (m *Matrix) Inputs() []InputPin { return m.inputs }

// Outputs returns the output pins in order.
func (m *Matrix) Outputs() []OutputPin { return m.outputs }

// Press closes the switch at (row, col).
func (m *Matrix) Press(row, col int) { m.setSwitch(row, col, true) }

// Release opens the switch at (row, col).
func (m *Matrix) Release(row, col int) { m.setSwitch(row, col, false) }

func (m *Matrix) setSwitch(row, col int, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 0 || row >= m.dims.Rows || col < 0 || col >= m.dims.Cols {
		return
	}
	m.pressed[row*m.dims.Cols+col] = closed
}

// FailNextRead makes the next input read return err.
func (m *Matrix) FailNextRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = err
}

func (m *Matrix) read(input int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fault != nil {
		err := m.fault
		m.fault = nil
		return false, err
	}
	for output, driven := range m.driven {
		if !driven {
			continue
		}
		row, col := board.Position(input, output)
		if m.pressed[row*m.dims.Cols+col] {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matrix) drive(output int, high bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driven[output] = high
}

type matrixInput struct {
	matrix *Matrix
	index  int
}

func (p matrixInput) IsHigh() (bool, error) { return p.matrix.read(p.index) }

type matrixOutput struct {
	matrix *Matrix
	index  int
}

func (p matrixOutput) SetHigh() error {
	p.matrix.drive(p.index, true)
	return nil
}

func (p matrixOutput) SetLow() error {
	p.matrix.drive(p.index, false)
	return nil
}
