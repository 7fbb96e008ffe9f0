// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !col2row

package board

// Col2Row reports that rows are read as inputs and columns driven.
const Col2Row = false
