// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked wraps the value of a job that panicked.
var ErrPanicked = errors.New("job panicked")

// Job is a unit of work meant to run until its context is cancelled.
// Returning, with or without an error, means the job died.
type Job func(ctx context.Context) error

// Branch is a node of a race tree: a named job or a nested selection.
type Branch struct {
	name     string
	job      Job
	children []Branch
}

// Task returns a leaf branch running job under name.
func Task(name string, job Job) Branch {
	return Branch{name: name, job: job}
}

// Select returns a branch that resolves with whichever of branches
// resolves first. When several have resolved, the leftmost wins,
// recursively.
func Select(branches ...Branch) Branch {
	if len(branches) == 0 {
		panic("supervisor: Select of no branches")
	}
	return Branch{children: branches}
}

// Outcome is the result of a race: the job that resolved first, its
// position in the tree as child indices from the root, and what it
// returned.
type Outcome struct {
	Name string
	Path []int
	Err  error
}

// leaf is a job with its position in the tree. Leaves are numbered in
// order, so the leftmost-wins rule reduces to lowest index wins.
type leaf struct {
	name string
	job  Job
	path []int
}

func (b Branch) leaves(prefix []int, into []leaf) []leaf {
	if b.children == nil {
		return append(into, leaf{name: b.name, job: b.job, path: prefix})
	}
	for i, child := range b.children {
		path := append(append([]int(nil), prefix...), i)
		into = child.leaves(path, into)
	}
	return into
}

// Names returns the job names of the tree in leftmost-first order.
func (b Branch) Names() []string {
	var names []string
	for _, l := range b.leaves(nil, nil) {
		names = append(names, l.name)
	}
	return names
}

// resolution is one job's return.
type resolution struct {
	index int
	err   error
}

// Race runs every job of root until the first one returns, cancels
// the others, and waits for all of them to return before reporting.
// If ctx is cancelled first, the jobs see the cancellation and the
// outcome is whichever of them returned first.
//
// Cancelled jobs are waited for, not abandoned: a job that ignores its
// context blocks Race, and with it the supervisor, indefinitely. In
// exchange no job of one race can still be running when the next race
// starts the same job against the same service.
func Race(ctx context.Context, root Branch) Outcome {
	leaves := root.leaves(nil, nil)
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan resolution, len(leaves))
	var wg sync.WaitGroup
	for index, l := range leaves {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- resolution{index: index, err: runJob(raceCtx, l.job)}
		}()
	}

	winner := settle(<-results, results)

	cancel()
	wg.Wait()

	return Outcome{
		Name: leaves[winner.index].name,
		Path: leaves[winner.index].path,
		Err:  winner.err,
	}
}

// settle picks the winner among first and every resolution already
// delivered behind it. Jobs that resolved at the same moment compete
// on position.
func settle(first resolution, results <-chan resolution) resolution {
	resolved := []resolution{first}
	for {
		select {
		case another := <-results:
			resolved = append(resolved, another)
		default:
			return leftmost(resolved)
		}
	}
}

// leftmost returns the resolution with the lowest leaf index.
func leftmost(resolved []resolution) resolution {
	winner := resolved[0]
	for _, candidate := range resolved[1:] {
		if candidate.index < winner.index {
			winner = candidate
		}
	}
	return winner
}

// runJob calls job, converting a panic into an error wrapping
// ErrPanicked.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, recovered)
		}
	}()
	return job(ctx)
}
