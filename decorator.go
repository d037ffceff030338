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
	"strconv"
)

type (
	// decorator is the embeddable base for nodes with exactly one child.
	decorator struct {
		node
		child Node
	}

	// Inverter swaps its child's Success and Failure, passing Running through.
	Inverter struct {
		decorator
	}

	// Repeater re-ticks its child within a single tick, counting successes
	// until the configured count is reached (then Success), propagating
	// Running with the counter preserved, and resetting on child Failure
	// (then Failure). A count of zero succeeds without ticking the child; a
	// negative count repeats forever, yielding Running after each completed
	// child cycle.
	Repeater struct {
		decorator
		count    int
		repeated int
	}

	// UntilSuccess re-ticks its child across ticks until it succeeds,
	// translating child Failure into Running, with child Running propagated.
	// With maxAttempts > 0, exhausting the attempts reports Failure.
	UntilSuccess struct {
		decorator
		maxAttempts int
		attempts    int
	}

	// UntilFailure is the dual of UntilSuccess: it re-ticks its child until
	// it fails, and with maxAttempts > 0 exhaustion reports Success.
	UntilFailure struct {
		decorator
		maxAttempts int
		attempts    int
	}
)

// Children implements Node.Children
func (d *decorator) Children() []Node {
	if d.child == nil {
		return nil
	}
	return []Node{d.child}
}

// Reset implements Node.Reset, recursively.
func (d *decorator) Reset() {
	if d.child != nil {
		d.child.Reset()
	}
	d.node.Reset()
}

// decoratorArity marks the one-child arity constraint for tree validation.
func (d *decorator) decoratorArity() {}

func (d *decorator) addChild(self Node, child Node) error {
	if child == nil {
		return invalidTree(`nil child of %q`, d.name)
	}
	if d.child != nil {
		return invalidTree(`decorator %q accepts exactly one child`, d.name)
	}
	child.setParent(self)
	d.child = child
	return nil
}

func (d *decorator) tickChild(ctx context.Context, scope *Scope, self Node) Status {
	if d.child == nil {
		return scope.Fail(self, `invalid_tree`, invalidTree(`decorator %q has no child`, d.name))
	}
	return d.child.Tick(ctx, scope)
}

// NewInverter constructs an Inverter over child.
func NewInverter(name string, child Node) *Inverter {
	i := &Inverter{decorator{node: newNode(`Inverter`, Config{`name`: name})}}
	if child != nil {
		_ = i.addChild(i, child)
	}
	return i
}

// Tick implements Node.Tick
func (i *Inverter) Tick(ctx context.Context, scope *Scope) Status {
	switch i.tickChild(ctx, scope, i) {
	case Running:
		return i.conclude(scope, Running)
	case Failure:
		return i.conclude(scope, Success)
	default:
		return i.conclude(scope, Failure)
	}
}

func (i *Inverter) accept(child Node) error { return i.addChild(i, child) }

// NewRepeater constructs a Repeater over child; count < 0 repeats forever.
func NewRepeater(name string, count int, child Node) *Repeater {
	r := &Repeater{decorator: decorator{node: newNode(`Repeater`, Config{`name`: name, `count`: strconv.Itoa(count)})}, count: count}
	if child != nil {
		_ = r.addChild(r, child)
	}
	return r
}

// Tick implements Node.Tick
func (r *Repeater) Tick(ctx context.Context, scope *Scope) Status {
	if r.count == 0 {
		return r.conclude(scope, Success)
	}
	for {
		switch r.tickChild(ctx, scope, r) {
		case Running:
			return r.conclude(scope, Running)
		case Success:
			r.repeated++
			if r.count < 0 {
				// unbounded, yield between child cycles
				return r.conclude(scope, Running)
			}
			if r.repeated >= r.count {
				r.repeated = 0
				return r.conclude(scope, Success)
			}
		default:
			r.repeated = 0
			return r.conclude(scope, Failure)
		}
		if ctx.Err() != nil {
			return r.conclude(scope, Running)
		}
	}
}

// Reset implements Node.Reset
func (r *Repeater) Reset() {
	r.repeated = 0
	r.decorator.Reset()
}

func (r *Repeater) accept(child Node) error { return r.addChild(r, child) }

// NewUntilSuccess constructs an UntilSuccess over child; maxAttempts <= 0
// retries without limit.
func NewUntilSuccess(name string, maxAttempts int, child Node) *UntilSuccess {
	u := &UntilSuccess{decorator: decorator{node: newNode(`UntilSuccess`, Config{`name`: name, `max_attempts`: strconv.Itoa(maxAttempts)})}, maxAttempts: maxAttempts}
	if child != nil {
		_ = u.addChild(u, child)
	}
	return u
}

// Tick implements Node.Tick
func (u *UntilSuccess) Tick(ctx context.Context, scope *Scope) Status {
	switch u.tickChild(ctx, scope, u) {
	case Running:
		return u.conclude(scope, Running)
	case Success:
		u.attempts = 0
		return u.conclude(scope, Success)
	default:
		u.attempts++
		if u.maxAttempts > 0 && u.attempts >= u.maxAttempts {
			u.attempts = 0
			return u.conclude(scope, Failure)
		}
		return u.conclude(scope, Running)
	}
}

// Reset implements Node.Reset
func (u *UntilSuccess) Reset() {
	u.attempts = 0
	u.decorator.Reset()
}

func (u *UntilSuccess) accept(child Node) error { return u.addChild(u, child) }

// NewUntilFailure constructs an UntilFailure over child; maxAttempts <= 0
// retries without limit.
func NewUntilFailure(name string, maxAttempts int, child Node) *UntilFailure {
	u := &UntilFailure{decorator: decorator{node: newNode(`UntilFailure`, Config{`name`: name, `max_attempts`: strconv.Itoa(maxAttempts)})}, maxAttempts: maxAttempts}
	if child != nil {
		_ = u.addChild(u, child)
	}
	return u
}

// Tick implements Node.Tick
func (u *UntilFailure) Tick(ctx context.Context, scope *Scope) Status {
	switch u.tickChild(ctx, scope, u) {
	case Running:
		return u.conclude(scope, Running)
	case Failure:
		u.attempts = 0
		return u.conclude(scope, Failure)
	default:
		u.attempts++
		if u.maxAttempts > 0 && u.attempts >= u.maxAttempts {
			u.attempts = 0
			return u.conclude(scope, Success)
		}
		return u.conclude(scope, Running)
	}
}

// Reset implements Node.Reset
func (u *UntilFailure) Reset() {
	u.attempts = 0
	u.decorator.Reset()
}

func (u *UntilFailure) accept(child Node) error { return u.addChild(u, child) }
