// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keyweave/keyweave/lib/clock"
	"github.com/keyweave/keyweave/lib/testutil"
)

// forever is a job that runs until cancelled.
func forever(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLeavesInOrder(t *testing.T) {
	tree := Select(
		Select(Task("transport", forever), Task("keyboard", forever)),
		Task("persistence", forever),
		Task("status", forever),
		Task("config", forever),
	)
	want := []string{"transport", "keyboard", "persistence", "status", "config"}
	if got := tree.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	leaves := tree.leaves(nil, nil)
	if got := leaves[1].path; !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("keyboard path = %v, want [0 1]", got)
	}
	if got := leaves[4].path; !reflect.DeepEqual(got, []int{3}) {
		t.Errorf("config path = %v, want [3]", got)
	}
}

func TestLeftmostWins(t *testing.T) {
	tests := []struct {
		resolved []int
		want     int
	}{
		{[]int{3}, 3},
		{[]int{4, 1, 2}, 1},
		{[]int{2, 0}, 0},
	}
	for _, test := range tests {
		var resolved []resolution
		for _, index := range test.resolved {
			resolved = append(resolved, resolution{index: index})
		}
		if got := leftmost(resolved).index; got != test.want {
			t.Errorf("leftmost(%v) = %d, want %d", test.resolved, got, test.want)
		}
	}
}

func TestSettleTakesLeftmostDelivered(t *testing.T) {
	results := make(chan resolution, 4)
	results <- resolution{index: 4}
	results <- resolution{index: 1}
	if got := settle(resolution{index: 3}, results).index; got != 1 {
		t.Errorf("settle = %d, want 1", got)
	}
	if len(results) != 0 {
		t.Errorf("settle left %d resolutions undrained", len(results))
	}

	// Nothing else delivered: the first resolution stands.
	if got := settle(resolution{index: 2}, results).index; got != 2 {
		t.Errorf("settle with nothing behind = %d, want 2", got)
	}
}

func TestRaceSimultaneousResolution(t *testing.T) {
	leftFailure := errors.New("transport reset")
	rightFailure := errors.New("keyboard stalled")
	for round := 0; round < 50; round++ {
		var started sync.WaitGroup
		started.Add(2)
		release := make(chan struct{})
		var returned atomic.Int32
		together := func(err error) Job {
			return func(context.Context) error {
				started.Done()
				<-release
				returned.Add(1)
				return err
			}
		}
		go func() {
			started.Wait()
			close(release)
		}()

		outcome := Race(context.Background(), Select(
			Select(Task("transport", together(leftFailure)), Task("keyboard", together(rightFailure))),
			Task("status", forever),
		))
		switch outcome.Name {
		case "transport":
			if !errors.Is(outcome.Err, leftFailure) || !reflect.DeepEqual(outcome.Path, []int{0, 0}) {
				t.Fatalf("round %d: outcome = %+v", round, outcome)
			}
		case "keyboard":
			if !errors.Is(outcome.Err, rightFailure) || !reflect.DeepEqual(outcome.Path, []int{0, 1}) {
				t.Fatalf("round %d: outcome = %+v", round, outcome)
			}
		default:
			t.Fatalf("round %d: %s won a race it never resolved", round, outcome.Name)
		}
		if got := returned.Load(); got != 2 {
			t.Fatalf("round %d: %d of 2 released jobs returned before Race", round, got)
		}
	}
}

func TestRaceReportsFirstResolution(t *testing.T) {
	failure := errors.New("endpoint stalled")
	outcome := Race(context.Background(), Select(
		Select(Task("transport", forever), Task("keyboard", func(context.Context) error { return failure })),
		Task("status", forever),
	))

	if outcome.Name != "keyboard" {
		t.Errorf("Name = %q, want keyboard", outcome.Name)
	}
	if !reflect.DeepEqual(outcome.Path, []int{0, 1}) {
		t.Errorf("Path = %v, want [0 1]", outcome.Path)
	}
	if !errors.Is(outcome.Err, failure) {
		t.Errorf("Err = %v, want %v", outcome.Err, failure)
	}
}

func TestRaceWaitsForCancelledJobs(t *testing.T) {
	var stopped atomic.Bool
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		stopped.Store(true)
		return ctx.Err()
	}

	Race(context.Background(), Select(Task("slow", slow), Task("quick", func(context.Context) error { return nil })))
	if !stopped.Load() {
		t.Error("Race returned before the cancelled job stopped")
	}
}

func TestRaceRecoversPanics(t *testing.T) {
	outcome := Race(context.Background(), Select(
		Task("transport", forever),
		Task("config", func(context.Context) error { panic("index out of range") }),
	))
	if outcome.Name != "config" || !errors.Is(outcome.Err, ErrPanicked) {
		t.Errorf("outcome = %+v, want config with ErrPanicked", outcome)
	}
}

func TestRaceNilErrorStillResolves(t *testing.T) {
	outcome := Race(context.Background(), Select(Task("transport", forever), Task("status", func(context.Context) error { return nil })))
	if outcome.Name != "status" || outcome.Err != nil {
		t.Errorf("outcome = %+v, want status with nil error", outcome)
	}
}

// nextProblem returns the next record at warning level or above.
func nextProblem(t *testing.T, handler *testutil.RecordingHandler) slog.Record {
	t.Helper()
	for {
		record := testutil.RequireReceive(t, handler.Records, 5*time.Second, "log record")
		if record.Level >= slog.LevelWarn {
			return record
		}
	}
}

func TestSupervisorRestartsGroupAfterBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := clock.Fake(time.Unix(0, 0))
	logger, handler := testutil.NewRecordingLogger(16)
	supervisor := New(fake, logger)

	generations := make(chan int, 4)
	kill := make(chan error, 1)
	var built int
	build := func() Branch {
		built++
		generations <- built
		return Select(
			Select(Task("transport", forever), Task("keyboard", func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case err := <-kill:
					return err
				}
			})),
			Task("status", forever),
			Task("config", forever),
		)
	}

	done := make(chan error, 1)
	go func() { done <- supervisor.Run(ctx, build) }()
	testutil.RequireReceive(t, generations, 5*time.Second, "first generation")

	kill <- errors.New("matrix pin fault")

	died := nextProblem(t, handler)
	if died.Level != slog.LevelError || died.Message != "keyboard task is died" {
		t.Fatalf("first record = %v %q, want error \"keyboard task is died\"", died.Level, died.Message)
	}
	if task, _ := testutil.Attr(died, "task"); task.String() != "keyboard" {
		t.Errorf("task attribute = %q, want keyboard", task.String())
	}
	warning := nextProblem(t, handler)
	if warning.Level != slog.LevelWarn || warning.Message != "Detected failure, restarting keyboard service after 1 second" {
		t.Fatalf("second record = %v %q, want the restart warning", warning.Level, warning.Message)
	}

	fake.WaitForTimers(1)
	fake.Advance(999 * time.Millisecond)
	select {
	case generation := <-generations:
		t.Fatalf("generation %d started before the backoff elapsed", generation)
	case <-time.After(20 * time.Millisecond):
	}

	fake.Advance(time.Millisecond)
	if generation := testutil.RequireReceive(t, generations, 5*time.Second, "second generation"); generation != 2 {
		t.Errorf("generation = %d, want 2", generation)
	}
	if supervisor.Restarts() != 1 {
		t.Errorf("Restarts() = %d, want 1", supervisor.Restarts())
	}
	if supervisor.LastFailure().Name != "keyboard" {
		t.Errorf("LastFailure().Name = %q, want keyboard", supervisor.LastFailure().Name)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestSupervisorCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := clock.Fake(time.Unix(0, 0))
	logger, _ := testutil.NewRecordingLogger(16)
	supervisor := New(fake, logger)

	done := make(chan error, 1)
	go func() {
		done <- supervisor.Run(ctx, func() Branch {
			return Select(Task("status", func(context.Context) error { return nil }))
		})
	}()

	fake.WaitForTimers(1)
	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if supervisor.Restarts() != 0 {
		t.Errorf("Restarts() = %d, want 0", supervisor.Restarts())
	}
}
