// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package scan

// debouncer accepts a key state change once the raw reading has
// disagreed with the stable state for threshold consecutive scans.
type debouncer struct {
	threshold int
	stable    []bool
	counts    []int
}

func newDebouncer(keys, threshold int) *debouncer {
	if threshold < 1 {
		threshold = 1
	}
	return &debouncer{
		threshold: threshold,
		stable:    make([]bool, keys),
		counts:    make([]int, keys),
	}
}

// update feeds one raw reading for key and reports whether the stable
// state flipped.
func (d *debouncer) update(key int, raw bool) bool {
	if raw == d.stable[key] {
		d.counts[key] = 0
		return false
	}
	d.counts[key]++
	if d.counts[key] < d.threshold {
		return false
	}
	d.stable[key] = raw
	d.counts[key] = 0
	return true
}

// pressed reports the stable state of key.
func (d *debouncer) pressed(key int) bool { return d.stable[key] }
