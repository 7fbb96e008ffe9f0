// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("keyweave keymap "), 64)
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			compressed, used, err := compress(data, tag)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			if used != tag {
				t.Errorf("compress used %v, want %v", used, tag)
			}
			if tag != CompressionNone && len(compressed) >= len(data) {
				t.Errorf("compressed size %d not below %d", len(compressed), len(data))
			}
			restored, err := decompress(compressed, used, len(data))
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(restored, data) {
				t.Error("round trip altered the data")
			}
		})
	}
}

func TestCompressFallsBackForIncompressible(t *testing.T) {
	data := []byte{0x01, 0x7f, 0x33}
	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		compressed, used, err := compress(data, tag)
		if err != nil {
			t.Fatalf("compress(%v): %v", tag, err)
		}
		if used != CompressionNone || !bytes.Equal(compressed, data) {
			t.Errorf("compress(%v) = %x with %v, want the input stored uncompressed", tag, compressed, used)
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	if _, err := decompress([]byte("abc"), CompressionNone, 4); err == nil {
		t.Error("decompress accepted a size mismatch")
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		parsed, err := ParseCompressionTag(tag.String())
		if err != nil || parsed != tag {
			t.Errorf("ParseCompressionTag(%q) = %v, %v", tag.String(), parsed, err)
		}
	}
	if _, err := ParseCompressionTag("gzip"); err == nil {
		t.Error("ParseCompressionTag accepted gzip")
	}
}
