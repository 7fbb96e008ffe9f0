// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(time.Second)
	if got, want := clock.Now(), epoch.Add(time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterWaitsForDeadline(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(time.Second)

	clock.Advance(999 * time.Millisecond)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d after firing, want 0", count)
	}
}

func TestFakeClockAfterNonPositiveIsImmediate(t *testing.T) {
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d, want 0", count)
	}
}

func TestFakeClockTickerReschedules(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Millisecond)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d not delivered", i)
		}
	}
	if count := clock.PendingCount(); count != 1 {
		t.Errorf("PendingCount() = %d, want 1 (ticker stays armed)", count)
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Millisecond)
	ticker.Stop()

	clock.Advance(5 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d, want 0", count)
	}
}

func TestFakeClockNewTickerPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}

func TestFakeClockFiresInDueOrder(t *testing.T) {
	clock := Fake(epoch)
	late := clock.After(3 * time.Millisecond)
	ticker := clock.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	early := clock.After(time.Millisecond)

	clock.Advance(3 * time.Millisecond)
	for _, check := range []struct {
		name    string
		channel <-chan time.Time
		want    time.Duration
	}{
		{"early", early, time.Millisecond},
		{"ticker", ticker.C, 2 * time.Millisecond},
		{"late", late, 3 * time.Millisecond},
	} {
		select {
		case got := <-check.channel:
			if want := epoch.Add(check.want); !got.Equal(want) {
				t.Errorf("%s fired with %v, want %v", check.name, got, want)
			}
		default:
			t.Errorf("%s did not fire", check.name)
		}
	}
	if got, want := clock.Now(), epoch.Add(3*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeClockUnreadTickIsDropped(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Millisecond)
	defer ticker.Stop()

	clock.Advance(5 * time.Millisecond)
	if got := <-ticker.C; !got.Equal(epoch.Add(time.Millisecond)) {
		t.Errorf("first tick = %v, want the first due time", got)
	}
	select {
	case got := <-ticker.C:
		t.Fatalf("second tick %v delivered while the first was unread", got)
	default:
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Second)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Second)
	<-done
}
