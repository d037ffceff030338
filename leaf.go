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
)

type (
	// ExecuteFunc is the user-provided logic of an Action node.
	ExecuteFunc func(ctx context.Context, blackboard *Blackboard) (Status, error)

	// EvaluateFunc is the user-provided predicate of a Condition node.
	EvaluateFunc func(ctx context.Context, blackboard *Blackboard) (bool, error)

	// Action is a leaf node driven by an ExecuteFunc; its result is the
	// node's status, with errors converted to Failure plus an EventError.
	Action struct {
		node
		execute ExecuteFunc
	}

	// AsyncAction is an Action whose ExecuteFunc runs on its own goroutine,
	// reporting Running until the work completes. The node tracks at most one
	// execution at a time; Reset drops the tracked execution without stopping
	// its goroutine, so the next Tick may start another alongside it.
	AsyncAction struct {
		node
		execute ExecuteFunc
		done    chan asyncResult
	}

	// Condition is a leaf node driven by an EvaluateFunc, mapping true to
	// Success and false to Failure; it never returns Running.
	Condition struct {
		node
		evaluate EvaluateFunc
	}

	asyncResult struct {
		status Status
		err    error
	}
)

// NewAction constructs an Action leaf.
func NewAction(name string, execute ExecuteFunc) *Action {
	return &Action{node: newNode(`Action`, Config{`name`: name}), execute: execute}
}

// Tick implements Node.Tick
func (a *Action) Tick(ctx context.Context, scope *Scope) Status {
	if a.execute == nil {
		return a.conclude(scope, scope.Fail(a, `error`, errors.New(`nil execute func`)))
	}
	status, err := a.execute(ctx, scope.Blackboard)
	if err != nil {
		return a.conclude(scope, scope.Fail(a, `error`, err))
	}
	return a.conclude(scope, status)
}

// NewAsyncAction constructs an AsyncAction leaf.
func NewAsyncAction(name string, execute ExecuteFunc) *AsyncAction {
	return &AsyncAction{node: newNode(`AsyncAction`, Config{`name`: name}), execute: execute}
}

// Tick implements Node.Tick, starting the execute func on a goroutine if one
// is not already in flight, then polling for its result without blocking.
func (a *AsyncAction) Tick(ctx context.Context, scope *Scope) Status {
	if a.execute == nil {
		return a.conclude(scope, scope.Fail(a, `error`, errors.New(`nil execute func`)))
	}
	if a.done == nil {
		// start the async execution, the non-nil done indicates that we are running
		done := make(chan asyncResult, 1)
		a.done = done
		blackboard := scope.Blackboard
		execute := a.execute
		go func() {
			var result asyncResult
			defer func() { done <- result }()
			result.status, result.err = execute(ctx, blackboard)
		}()
		return a.conclude(scope, Running)
	}
	select {
	case result := <-a.done:
		a.done = nil
		if result.err != nil {
			return a.conclude(scope, scope.Fail(a, `error`, result.err))
		}
		return a.conclude(scope, result.status)
	default:
		return a.conclude(scope, Running)
	}
}

// Reset implements Node.Reset, abandoning any in-flight execution.
func (a *AsyncAction) Reset() {
	a.done = nil
	a.node.Reset()
}

// NewCondition constructs a Condition leaf.
func NewCondition(name string, evaluate EvaluateFunc) *Condition {
	return &Condition{node: newNode(`Condition`, Config{`name`: name}), evaluate: evaluate}
}

// Tick implements Node.Tick
func (c *Condition) Tick(ctx context.Context, scope *Scope) Status {
	if c.evaluate == nil {
		return c.conclude(scope, scope.Fail(c, `error`, errors.New(`nil evaluate func`)))
	}
	ok, err := c.evaluate(ctx, scope.Blackboard)
	if err != nil {
		return c.conclude(scope, scope.Fail(c, `error`, err))
	}
	if ok {
		return c.conclude(scope, Success)
	}
	return c.conclude(scope, Failure)
}
