// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrImageLocked is returned by OpenFile when another process holds
// the image.
var ErrImageLocked = errors.New("flash: image is locked by another process")

// File is a blocking Flash backed by an image file on the host. The
// image is locked for exclusive use while open, the way one chip
// belongs to one board.
type File struct {
	mu        sync.Mutex
	file      *os.File
	capacity  uint32
	eraseSize uint32
}

// OpenFile opens the image at path, creating an erased image of
// sectors sectors of eraseSize bytes when none exists. An existing
// image must have exactly that size.
func OpenFile(path string, sectors int, eraseSize uint32) (*File, error) {
	if sectors <= 0 || eraseSize == 0 {
		return nil, fmt.Errorf("flash image %s: invalid geometry %d x %d", path, sectors, eraseSize)
	}
	capacity := uint32(sectors) * eraseSize

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createImage(path, capacity); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking flash image %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening flash image %s: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrImageLocked, path)
		}
		return nil, fmt.Errorf("locking flash image %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("checking flash image %s: %w", path, err)
	}
	if info.Size() != int64(capacity) {
		file.Close()
		return nil, fmt.Errorf("flash image %s is %d bytes, want %d", path, info.Size(), capacity)
	}

	return &File{file: file, capacity: capacity, eraseSize: eraseSize}, nil
}

// createImage writes an erased image through a temporary file so a
// crash never leaves a short image at path.
func createImage(path string, capacity uint32) error {
	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating flash image: %w", err)
	}
	if _, err := file.Write(bytes.Repeat([]byte{ErasedByte}, int(capacity))); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing flash image: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing flash image: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing flash image: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming flash image into place: %w", err)
	}
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Capacity implements Flash.
func (f *File) Capacity() uint32 { return f.capacity }

// EraseSize implements Flash.
func (f *File) EraseSize() uint32 { return f.eraseSize }

// ReadAt implements Flash.
func (f *File) ReadAt(offset uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkRange(f.capacity, offset, len(buf)); err != nil {
		return err
	}
	if _, err := f.file.ReadAt(buf, int64(offset)); err != nil {
		return fmt.Errorf("reading flash image: %w", err)
	}
	return nil
}

// Write implements Flash. Bits already cleared stay cleared.
func (f *File) Write(offset uint32, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkRange(f.capacity, offset, len(data)); err != nil {
		return err
	}
	current := make([]byte, len(data))
	if _, err := f.file.ReadAt(current, int64(offset)); err != nil {
		return fmt.Errorf("reading flash image: %w", err)
	}
	for i := range current {
		current[i] &= data[i]
	}
	if _, err := f.file.WriteAt(current, int64(offset)); err != nil {
		return fmt.Errorf("writing flash image: %w", err)
	}
	return f.sync()
}

// Erase implements Flash.
func (f *File) Erase(from, to uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkErase(f.capacity, f.eraseSize, from, to); err != nil {
		return err
	}
	if _, err := f.file.WriteAt(bytes.Repeat([]byte{ErasedByte}, int(to-from)), int64(from)); err != nil {
		return fmt.Errorf("erasing flash image: %w", err)
	}
	return f.sync()
}

func (f *File) sync() error {
	if err := unix.Fdatasync(int(f.file.Fd())); err != nil {
		return fmt.Errorf("syncing flash image: %w", err)
	}
	return nil
}

// Close releases the lock and closes the image.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	unix.Flock(int(f.file.Fd()), unix.LOCK_UN)
	return f.file.Close()
}
