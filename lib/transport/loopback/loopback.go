// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package loopback is an in-process transport driver. The firmware
// side is the transport.Driver methods; the test or simulator plays
// the host through the remaining methods.
package loopback

import (
	"context"
	"fmt"
	"sync"

	"github.com/keyweave/keyweave/lib/transport"
)

// queueDepth is the buffer of every report queue.
const queueDepth = 64

// Host is a transport.Driver connected to an in-process host.
type Host struct {
	keyboard  chan []byte
	other     chan []byte
	responses chan []byte
	leds      chan []byte
	requests  chan []byte

	connected  chan transport.Identity
	disconnect chan struct{}

	mu          sync.Mutex
	connections int
}

// New returns a host with empty queues.
func New() *Host {
	return &Host{
		keyboard:   make(chan []byte, queueDepth),
		other:      make(chan []byte, queueDepth),
		responses:  make(chan []byte, queueDepth),
		leds:       make(chan []byte, queueDepth),
		requests:   make(chan []byte, queueDepth),
		connected:  make(chan transport.Identity, queueDepth),
		disconnect: make(chan struct{}, 1),
	}
}

// Run implements transport.Driver. Each call counts as one connection
// and is announced on Connected. It returns transport.ErrDisconnected
// after Disconnect.
func (h *Host) Run(ctx context.Context, identity transport.Identity) error {
	h.mu.Lock()
	h.connections++
	h.mu.Unlock()

	select {
	case h.connected <- identity:
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.disconnect:
		return transport.ErrDisconnected
	}
}

// Write implements transport.Driver.
func (h *Host) Write(ctx context.Context, endpoint transport.Endpoint, report []byte) error {
	var queue chan []byte
	switch endpoint {
	case transport.EndpointKeyboard:
		queue = h.keyboard
	case transport.EndpointOther:
		queue = h.other
	case transport.EndpointConfig:
		queue = h.responses
	default:
		return fmt.Errorf("loopback: cannot write to %s endpoint", endpoint)
	}
	return send(ctx, queue, report)
}

// Read implements transport.Driver.
func (h *Host) Read(ctx context.Context, endpoint transport.Endpoint, buf []byte) (int, error) {
	var queue chan []byte
	switch endpoint {
	case transport.EndpointLEDs:
		queue = h.leds
	case transport.EndpointConfig:
		queue = h.requests
	default:
		return 0, fmt.Errorf("loopback: cannot read from %s endpoint", endpoint)
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case report := <-queue:
		return copy(buf, report), nil
	}
}

func send(ctx context.Context, queue chan<- []byte, report []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case queue <- append([]byte(nil), report...):
		return nil
	}
}

// KeyboardReports delivers every keyboard report the firmware writes.
func (h *Host) KeyboardReports() <-chan []byte { return h.keyboard }

// OtherReports delivers every auxiliary report the firmware writes.
func (h *Host) OtherReports() <-chan []byte { return h.other }

// ConfigResponses delivers every configuration response.
func (h *Host) ConfigResponses() <-chan []byte { return h.responses }

// SendLEDs queues a keyboard output report carrying the lock state.
func (h *Host) SendLEDs(ctx context.Context, state byte) error {
	return send(ctx, h.leds, []byte{state})
}

// SendConfig queues a configuration request packet.
func (h *Host) SendConfig(ctx context.Context, packet []byte) error {
	return send(ctx, h.requests, packet)
}

// Connected delivers the identity presented by each Run.
func (h *Host) Connected() <-chan transport.Identity { return h.connected }

// Connections returns how many times Run has been called.
func (h *Host) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connections
}

// Disconnect ends the current Run with transport.ErrDisconnected. When
// no Run is active, the next one ends immediately.
func (h *Host) Disconnect() {
	select {
	case h.disconnect <- struct{}{}:
	default:
	}
}
