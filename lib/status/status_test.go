// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/testutil"
)

// scriptedReader hands out queued reports and announces each read.
type scriptedReader struct {
	reports chan []byte
	reads   chan struct{}
}

func newScriptedReader() *scriptedReader {
	return &scriptedReader{reports: make(chan []byte, 8), reads: make(chan struct{}, 8)}
}

func (r *scriptedReader) ReadReport(ctx context.Context, buf []byte) (int, error) {
	r.reads <- struct{}{}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case report := <-r.reports:
		return copy(buf, report), nil
	}
}

// deliver queues report and waits until the service has applied it
// and come back for the next one.
func (r *scriptedReader) deliver(t *testing.T, report byte) {
	t.Helper()
	testutil.RequireSend(t, r.reports, []byte{report}, 5*time.Second, "LED report")
	testutil.RequireReceive(t, r.reads, 5*time.Second, "next read")
}

func TestIndicatorsFollowReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	caps, num := &hal.Pin{}, &hal.Pin{}
	service := New(config.StatusConfig{
		CapsLock: config.Indicator{Pin: caps, ActiveLow: true},
		NumLock:  config.Indicator{Pin: num},
	})
	reader := newScriptedReader()
	go service.Run(ctx, reader)
	testutil.RequireReceive(t, reader.reads, 5*time.Second, "first read")

	if !caps.High() || num.High() {
		t.Fatalf("initial levels caps=%v num=%v, want both indicators off", caps.High(), num.High())
	}

	reader.deliver(t, CapsLock|NumLock)
	if caps.High() || !num.High() {
		t.Errorf("levels caps=%v num=%v, want caps low and num high", caps.High(), num.High())
	}

	reader.deliver(t, ScrollLock)
	if !caps.High() || num.High() {
		t.Errorf("levels caps=%v num=%v, want both indicators off", caps.High(), num.High())
	}
	if service.State() != ScrollLock {
		t.Errorf("State() = %x, want %x", service.State(), ScrollLock)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	caps := &hal.Pin{}
	service := New(config.StatusConfig{CapsLock: config.Indicator{Pin: caps}})
	reader := newScriptedReader()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx, reader) }()
	testutil.RequireReceive(t, reader.reads, 5*time.Second, "first read")
	reader.deliver(t, CapsLock)
	cancel()
	testutil.RequireReceive(t, done, 5*time.Second, "Run return")

	// Something else drove the pin while no Run was active.
	if err := caps.SetLow(); err != nil {
		t.Fatalf("SetLow: %v", err)
	}

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	go service.Run(ctx, reader)
	testutil.RequireReceive(t, reader.reads, 5*time.Second, "first read after restart")
	if !caps.High() {
		t.Error("restarted Run did not reapply the caps lock state")
	}
}

func TestPinFaultEndsRun(t *testing.T) {
	fault := errors.New("gpio bank unpowered")
	pin := &hal.Pin{}
	pin.SetFault(fault)
	service := New(config.StatusConfig{ScrollLock: config.Indicator{Pin: pin}})

	if err := service.Run(context.Background(), newScriptedReader()); !errors.Is(err, fault) {
		t.Errorf("Run() = %v, want the pin fault", err)
	}
}

func TestUnwiredIndicatorsAreIgnored(t *testing.T) {
	service := New(config.StatusConfig{})
	if len(service.indicators) != 0 {
		t.Errorf("indicators = %d, want 0", len(service.indicators))
	}
	if err := service.apply(CapsLock | NumLock | ScrollLock); err != nil {
		t.Errorf("apply() = %v", err)
	}
}
