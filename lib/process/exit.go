// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors returned from run().
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(1)
}

// report writes the one-line error form Fatal prints.
func report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
