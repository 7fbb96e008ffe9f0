// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"context"
	"errors"
	"fmt"
)

// ErasedByte is the value of every byte after an erase.
const ErasedByte = 0xFF

var (
	// ErrOutOfBounds is returned for an access outside the device.
	ErrOutOfBounds = errors.New("flash: access out of bounds")

	// ErrNotAligned is returned for an erase range that does not fall
	// on sector boundaries.
	ErrNotAligned = errors.New("flash: erase range not sector aligned")
)

// Flash is a blocking NOR flash device.
type Flash interface {
	// ReadAt fills buf from offset.
	ReadAt(offset uint32, buf []byte) error

	// Write programs data at offset. Programming can only clear bits.
	Write(offset uint32, data []byte) error

	// Erase resets the sectors in [from, to) to ErasedByte.
	Erase(from, to uint32) error

	// Capacity returns the device size in bytes.
	Capacity() uint32

	// EraseSize returns the sector size in bytes.
	EraseSize() uint32
}

// AsyncFlash is a NOR flash device whose operations can be abandoned
// through their context.
type AsyncFlash interface {
	ReadAt(ctx context.Context, offset uint32, buf []byte) error
	Write(ctx context.Context, offset uint32, data []byte) error
	Erase(ctx context.Context, from, to uint32) error
	Capacity() uint32
	EraseSize() uint32
}

// Device is either a Flash or an AsyncFlash.
type Device interface {
	Capacity() uint32
	EraseSize() uint32
}

// Asyncify returns device as an AsyncFlash. A nil device stays nil and
// an AsyncFlash is returned as is; a Flash is wrapped in BlockingAsync.
// It panics on a Device that is neither.
func Asyncify(device Device) AsyncFlash {
	switch device := device.(type) {
	case nil:
		return nil
	case AsyncFlash:
		return device
	case Flash:
		return BlockingAsync{Device: device}
	default:
		panic(fmt.Sprintf("flash: %T implements neither Flash nor AsyncFlash", device))
	}
}

// BlockingAsync presents a blocking device as an AsyncFlash. Each call
// checks the context first and then runs to completion; a blocking
// operation cannot be interrupted halfway.
type BlockingAsync struct {
	Device Flash
}

func (b BlockingAsync) ReadAt(ctx context.Context, offset uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Device.ReadAt(offset, buf)
}

func (b BlockingAsync) Write(ctx context.Context, offset uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Device.Write(offset, data)
}

func (b BlockingAsync) Erase(ctx context.Context, from, to uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Device.Erase(from, to)
}

func (b BlockingAsync) Capacity() uint32 { return b.Device.Capacity() }

func (b BlockingAsync) EraseSize() uint32 { return b.Device.EraseSize() }

// checkRange validates an access of length bytes at offset.
func checkRange(capacity, offset uint32, length int) error {
	if uint64(offset)+uint64(length) > uint64(capacity) {
		return fmt.Errorf("%w: %d bytes at 0x%x, capacity 0x%x", ErrOutOfBounds, length, offset, capacity)
	}
	return nil
}

// checkErase validates an erase of [from, to).
func checkErase(capacity, eraseSize, from, to uint32) error {
	if from > to || to > capacity {
		return fmt.Errorf("%w: erase [0x%x, 0x%x), capacity 0x%x", ErrOutOfBounds, from, to, capacity)
	}
	if from%eraseSize != 0 || to%eraseSize != 0 {
		return fmt.Errorf("%w: [0x%x, 0x%x) with sector size 0x%x", ErrNotAligned, from, to, eraseSize)
	}
	return nil
}
