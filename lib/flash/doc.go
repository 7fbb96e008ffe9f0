// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package flash defines NOR flash capabilities and adapters between
// them.
//
// Boards supply either a [Flash] (blocking calls) or an [AsyncFlash]
// (calls that honor a context). Persistence only consumes AsyncFlash;
// [Asyncify] converts whatever the board supplied, returning the
// device unchanged when it is already asynchronous.
//
// Devices behave like NOR: erased bytes read 0xFF, a write can only
// clear bits, and erases operate on whole EraseSize-aligned sectors.
//
// [Mem] is an in-memory device for tests. [File] keeps a device image
// in a host file and is what the simulator uses to survive restarts.
package flash
