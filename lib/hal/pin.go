// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package hal

import "sync"

// Pin is an in-memory output pin that remembers its level. A non-nil
// Fault is returned by every write.
type Pin struct {
	mu     sync.Mutex
	high   bool
	writes int
	fault  error
}

func (p *Pin) SetHigh() error { return p.set(true) }

func (p *Pin) SetLow() error { return p.set(false) }

func (p *Pin) set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fault != nil {
		return p.fault
	}
	p.high = high
	p.writes++
	return nil
}

// High reports the last level written.
func (p *Pin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Writes counts successful writes.
func (p *Pin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// SetFault makes subsequent writes fail with err; nil clears it.
func (p *Pin) SetFault(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fault = err
}
