// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/keyweave/keyweave/lib/flash"
)

// Record layout, at the start of a slot:
//
//	0   magic "KWKM"
//	4   format version
//	5   compression tag
//	6   reserved (zero)
//	8   sequence number, little endian
//	12  stored payload length
//	16  raw payload length
//	20  BLAKE3-256 of bytes 0..20 followed by the stored payload
//	52  stored payload
//
// The payload is written before the header, so a record whose header
// verifies was programmed completely.
const (
	headerSize    = 52
	digestOffset  = 20
	formatVersion = 1

	// maxRawSize bounds the decompressed payload of a record.
	maxRawSize = 1 << 20
)

var recordMagic = [4]byte{'K', 'W', 'K', 'M'}

// recordHeader is the decoded fixed part of a record.
type recordHeader struct {
	Compression CompressionTag
	Sequence    uint32
	StoredSize  uint32
	RawSize     uint32
	Digest      [32]byte
}

// slotState classifies what a slot holds.
type slotState int

const (
	slotEmpty slotState = iota
	slotInvalid
	slotValid
)

// slot is the result of reading one record slot.
type slot struct {
	state   slotState
	header  recordHeader
	payload []byte
	reason  string
}

// marshal returns the header bytes with the digest computed over the
// prefix and payload.
func (h *recordHeader) marshal(payload []byte) []byte {
	buffer := make([]byte, headerSize)
	copy(buffer[0:4], recordMagic[:])
	buffer[4] = formatVersion
	buffer[5] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buffer[8:12], h.Sequence)
	binary.LittleEndian.PutUint32(buffer[12:16], h.StoredSize)
	binary.LittleEndian.PutUint32(buffer[16:20], h.RawSize)
	h.Digest = recordDigest(buffer[:digestOffset], payload)
	copy(buffer[digestOffset:], h.Digest[:])
	return buffer
}

func recordDigest(prefix, payload []byte) [32]byte {
	hasher := blake3.New()
	hasher.Write(prefix)
	hasher.Write(payload)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// readSlot reads and verifies the record at offset. A slot that fails
// verification is reported as slotInvalid with a reason, not as an
// error; errors are reserved for device failures.
func readSlot(ctx context.Context, store *Store, offset uint32) (slot, error) {
	buffer := make([]byte, headerSize)
	if err := store.device.ReadAt(ctx, offset, buffer); err != nil {
		return slot{}, fmt.Errorf("reading record header at 0x%x: %w", offset, err)
	}
	if isErased(buffer) {
		return slot{state: slotEmpty}, nil
	}
	if !bytes.Equal(buffer[0:4], recordMagic[:]) {
		return slot{state: slotInvalid, reason: "bad magic"}, nil
	}
	if buffer[4] != formatVersion {
		return slot{state: slotInvalid, reason: fmt.Sprintf("unsupported format version %d", buffer[4])}, nil
	}

	header := recordHeader{
		Compression: CompressionTag(buffer[5]),
		Sequence:    binary.LittleEndian.Uint32(buffer[8:12]),
		StoredSize:  binary.LittleEndian.Uint32(buffer[12:16]),
		RawSize:     binary.LittleEndian.Uint32(buffer[16:20]),
	}
	copy(header.Digest[:], buffer[digestOffset:])

	if uint64(header.StoredSize) > uint64(store.slotSize-headerSize) {
		return slot{state: slotInvalid, reason: fmt.Sprintf("stored size %d exceeds slot", header.StoredSize)}, nil
	}
	if header.RawSize > maxRawSize {
		return slot{state: slotInvalid, reason: fmt.Sprintf("raw size %d exceeds limit", header.RawSize)}, nil
	}

	payload := make([]byte, header.StoredSize)
	if err := store.device.ReadAt(ctx, offset+headerSize, payload); err != nil {
		return slot{}, fmt.Errorf("reading record payload at 0x%x: %w", offset+headerSize, err)
	}
	if recordDigest(buffer[:digestOffset], payload) != header.Digest {
		return slot{state: slotInvalid, reason: "digest mismatch"}, nil
	}
	return slot{state: slotValid, header: header, payload: payload}, nil
}

func isErased(data []byte) bool {
	for _, b := range data {
		if b != flash.ErasedByte {
			return false
		}
	}
	return true
}
