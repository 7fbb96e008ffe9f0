// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestAsyncifyNilStaysNil(t *testing.T) {
	if got := Asyncify(nil); got != nil {
		t.Fatalf("Asyncify(nil) = %v, want nil", got)
	}
}

func TestAsyncifyPassesAsyncThrough(t *testing.T) {
	mem := NewMem(2, 256)
	if got := Asyncify(mem); got != AsyncFlash(mem) {
		t.Fatalf("Asyncify(*Mem) = %T, want the same *Mem", got)
	}
}

func TestAsyncifyWrapsBlocking(t *testing.T) {
	mem := NewMem(2, 256)
	async := Asyncify(mem.Sync())
	if _, ok := async.(BlockingAsync); !ok {
		t.Fatalf("Asyncify(sync) = %T, want BlockingAsync", async)
	}

	ctx := context.Background()
	if err := async.Write(ctx, 10, []byte{0x12, 0x34}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 2)
	if err := mem.ReadAt(ctx, 10, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(buf, []byte{0x12, 0x34}) {
		t.Errorf("read back %x, want 1234", buf)
	}
}

func TestBlockingAsyncHonorsCancelledContext(t *testing.T) {
	mem := NewMem(1, 256)
	async := BlockingAsync{Device: mem.Sync()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := async.Write(ctx, 0, []byte{0}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Write on cancelled context = %v, want context.Canceled", err)
	}
	if mem.Bytes()[0] != ErasedByte {
		t.Error("cancelled write reached the device")
	}
}

func TestMemNORSemantics(t *testing.T) {
	ctx := context.Background()
	mem := NewMem(2, 256)

	if err := mem.Write(ctx, 0, []byte{0xF0}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := mem.Write(ctx, 0, []byte{0x0F}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := mem.Bytes()[0]; got != 0x00 {
		t.Errorf("byte after two writes = 0x%02x, want 0x00 (writes only clear bits)", got)
	}

	if err := mem.Erase(ctx, 0, 256); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if got := mem.Bytes()[0]; got != ErasedByte {
		t.Errorf("byte after erase = 0x%02x, want 0xff", got)
	}

	if err := mem.Erase(ctx, 1, 256); !errors.Is(err, ErrNotAligned) {
		t.Errorf("unaligned erase = %v, want ErrNotAligned", err)
	}
	if err := mem.Write(ctx, 511, []byte{1, 2}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("write past end = %v, want ErrOutOfBounds", err)
	}
}

func TestMemTearWrite(t *testing.T) {
	ctx := context.Background()
	mem := NewMem(1, 256)
	mem.TearWrite(1)

	err := mem.Write(ctx, 0, []byte{0, 0, 0, 0})
	if !errors.Is(err, ErrTornWrite) {
		t.Fatalf("Write = %v, want ErrTornWrite", err)
	}
	if got := mem.Bytes()[:4]; !bytes.Equal(got, []byte{0, 0, 0xFF, 0xFF}) {
		t.Errorf("torn write left %x, want 0000ffff", got)
	}
}

func TestFileImagePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	image, err := OpenFile(path, 4, 4096)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if image.Capacity() != 4*4096 {
		t.Errorf("Capacity() = %d, want %d", image.Capacity(), 4*4096)
	}
	if err := image.Write(4096, []byte("keymap")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := image.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenFile(path, 4, 4096)
	if err != nil {
		t.Fatalf("OpenFile again: %v", err)
	}
	defer reopened.Close()
	buf := make([]byte, 6)
	if err := reopened.ReadAt(4096, buf); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "keymap" {
		t.Errorf("read back %q, want %q", buf, "keymap")
	}
}

func TestFileImageIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	image, err := OpenFile(path, 1, 4096)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer image.Close()

	if _, err := OpenFile(path, 1, 4096); !errors.Is(err, ErrImageLocked) {
		t.Fatalf("second OpenFile = %v, want ErrImageLocked", err)
	}
}

func TestFileImageSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	image, err := OpenFile(path, 1, 4096)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	image.Close()

	if _, err := OpenFile(path, 2, 4096); err == nil {
		t.Fatal("OpenFile accepted an image of the wrong size")
	}
}
