/*
   Copyright 2026 Joseph Cumines

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package behaviorforest

import (
	"context"
	"errors"
	"sync"
	"time"
)

type (
	// Runner models a periodic tick loop driving a tree or a forest on its
	// own goroutine until stopped.
	Runner interface {
		// Done will close when the runner is fully stopped.
		Done() <-chan struct{}

		// Err will return any error that occurs.
		Err() error

		// Stop shutdown the runner asynchronously.
		Stop()
	}

	// runnerCore is the base runner implementation, driving an arbitrary
	// tick callback with drift compensation (each round targets the
	// previous target plus interval). Both tree runners and the forest
	// run loop are built on it.
	runnerCore struct {
		ctx    context.Context
		cancel context.CancelFunc
		tick   func(ctx context.Context) error
		done   chan struct{}
		stop   chan struct{}
		once   sync.Once
		mutex  sync.Mutex
		err    error
	}

	// runnerStopOnFailure is a runner that exits once the root fails
	runnerStopOnFailure struct {
		Runner
	}
)

// errExitOnFailure is used internally to exit runners constructed with
// NewRunnerStopOnFailure, and won't be returned by that implementation
var errExitOnFailure = errors.New("errExitOnFailure")

// NewRunner constructs a new Runner, ticking the provided tree periodically.
// Note that a panic will occur if ctx is nil, interval is <= 0, or tree is
// nil.
//
// The tree will tick until Runner.Stop is called or the context is canceled,
// after which any error is made available via Runner.Err, before closure of
// the done channel indicating that all resources have been freed.
func NewRunner(ctx context.Context, interval time.Duration, tree *Tree) Runner {
	if tree == nil {
		panic(errors.New("behaviorforest.NewRunner nil tree"))
	}
	return newRunner(ctx, interval, func(ctx context.Context) error {
		tree.Tick(ctx)
		return nil
	})
}

// NewRunnerStopOnFailure returns a Runner that exits cleanly on the first
// tick whose root status is Failure, without a non-nil Err. The panic cases
// for NewRunner apply.
func NewRunnerStopOnFailure(ctx context.Context, interval time.Duration, tree *Tree) Runner {
	if tree == nil {
		panic(errors.New("behaviorforest.NewRunnerStopOnFailure nil tree"))
	}
	return runnerStopOnFailure{Runner: newRunner(ctx, interval, func(ctx context.Context) error {
		if tree.Tick(ctx) == Failure {
			return errExitOnFailure
		}
		return nil
	})}
}

func newRunner(ctx context.Context, interval time.Duration, tick func(ctx context.Context) error) *runnerCore {
	if ctx == nil {
		panic(errors.New("behaviorforest.NewRunner nil context"))
	}

	if interval <= 0 {
		panic(errors.New("behaviorforest.NewRunner interval <= 0"))
	}

	if tick == nil {
		panic(errors.New("behaviorforest.NewRunner nil tick"))
	}

	result := &runnerCore{
		tick: tick,
		done: make(chan struct{}),
		stop: make(chan struct{}),
	}

	result.ctx, result.cancel = context.WithCancel(ctx)

	go result.run(interval)

	return result
}

func (r *runnerCore) run(interval time.Duration) {
	var err error
	target := time.Now().Add(interval)
	timer := time.NewTimer(time.Until(target))
	defer timer.Stop()
TickLoop:
	for err == nil {
		select {
		case <-r.ctx.Done():
			err = r.ctx.Err()
			break TickLoop
		case <-r.stop:
			break TickLoop
		case <-timer.C:
			err = r.tick(r.ctx)
			target = target.Add(interval)
			timer.Reset(time.Until(target))
		}
	}
	r.mutex.Lock()
	r.err = err
	r.mutex.Unlock()
	r.Stop()
	r.cancel()
	close(r.done)
}

func (r *runnerCore) Done() <-chan struct{} {
	return r.done
}

func (r *runnerCore) Err() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.err
}

func (r *runnerCore) Stop() {
	r.once.Do(func() {
		close(r.stop)
	})
}

func (r runnerStopOnFailure) Err() error {
	err := r.Runner.Err()
	if err == errExitOnFailure {
		return nil
	}
	return err
}
