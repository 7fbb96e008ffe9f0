// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage persists keymap snapshots in a flash region.
//
// The region is split into two equal slots. A record is a fixed header
// (magic, format version, compression tag, sequence number, lengths,
// BLAKE3 digest) followed by the snapshot encoded as CBOR and
// compressed with LZ4 or zstd. Save always targets the slot that does
// not hold the newest record and programs the header last, so power
// loss at any point leaves the last complete snapshot loadable.
//
// [Store.Run] is the persistence job: it saves the keymap each time
// its change signal fires.
package storage
