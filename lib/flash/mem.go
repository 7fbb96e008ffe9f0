// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"context"
	"errors"
	"sync"
)

// Mem is an in-memory NOR device implementing AsyncFlash. Sync returns
// a blocking view of the same storage.
type Mem struct {
	mu        sync.Mutex
	data      []byte
	eraseSize uint32

	// failAfter, when positive, counts down programmed writes; the
	// write that reaches zero is torn halfway and fails.
	failAfter int
	erases    int
}

// NewMem returns an erased device of sectors sectors of eraseSize
// bytes each.
func NewMem(sectors int, eraseSize uint32) *Mem {
	data := make([]byte, uint32(sectors)*eraseSize)
	for i := range data {
		data[i] = ErasedByte
	}
	return &Mem{data: data, eraseSize: eraseSize}
}

// Capacity implements AsyncFlash.
func (m *Mem) Capacity() uint32 { return uint32(len(m.data)) }

// EraseSize implements AsyncFlash.
func (m *Mem) EraseSize() uint32 { return m.eraseSize }

// Erases counts successful erase calls.
func (m *Mem) Erases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.erases
}

// TearWrite makes the nth following write program only its first half
// and return ErrTornWrite, as a power loss would.
func (m *Mem) TearWrite(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// Bytes returns a copy of the device contents.
func (m *Mem) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Clone returns an independent device with the same contents, as if
// the chip were moved to a new board.
func (m *Mem) Clone() *Mem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Mem{data: append([]byte(nil), m.data...), eraseSize: m.eraseSize}
}

func (m *Mem) read(offset uint32, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRange(uint32(len(m.data)), offset, len(buf)); err != nil {
		return err
	}
	copy(buf, m.data[offset:])
	return nil
}

func (m *Mem) write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRange(uint32(len(m.data)), offset, len(data)); err != nil {
		return err
	}
	torn := false
	if m.failAfter > 0 {
		m.failAfter--
		if m.failAfter == 0 {
			data = data[:len(data)/2]
			torn = true
		}
	}
	for i, b := range data {
		m.data[offset+uint32(i)] &= b
	}
	if torn {
		return ErrTornWrite
	}
	return nil
}

func (m *Mem) erase(from, to uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkErase(uint32(len(m.data)), m.eraseSize, from, to); err != nil {
		return err
	}
	for i := from; i < to; i++ {
		m.data[i] = ErasedByte
	}
	m.erases++
	return nil
}

// ErrTornWrite is returned by a write interrupted with TearWrite.
var ErrTornWrite = errors.New("flash: write torn by simulated power loss")

// memSync is the blocking view of a Mem.
type memSync struct{ m *Mem }

// Sync returns the blocking Flash view of m, for exercising the
// BlockingAsync path.
func (m *Mem) Sync() Flash { return memSync{m} }

func (s memSync) ReadAt(offset uint32, buf []byte) error { return s.m.read(offset, buf) }
func (s memSync) Write(offset uint32, data []byte) error { return s.m.write(offset, data) }
func (s memSync) Erase(from, to uint32) error { return s.m.erase(from, to) }
func (s memSync) Capacity() uint32 { return s.m.Capacity() }
func (s memSync) EraseSize() uint32 { return s.m.EraseSize() }

// ReadAt implements AsyncFlash.
func (m *Mem) ReadAt(ctx context.Context, offset uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.read(offset, buf)
}

// Write implements AsyncFlash.
func (m *Mem) Write(ctx context.Context, offset uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.write(offset, data)
}

// Erase implements AsyncFlash.
func (m *Mem) Erase(ctx context.Context, from, to uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.erase(from, to)
}
