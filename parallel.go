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

import "context"

// Parallel ticks all undecided children concurrently within one tick,
// keeping a per-child status snapshot across ticks so that children which
// already completed within the current cycle are not re-entered, and folding
// the snapshot by policy:
//
//   - RequireAll succeeds iff all children succeed, fails on any failure;
//   - RequireOne succeeds on any success, fails only if all children fail.
//
// Once the fold decides, the snapshot is cleared and the next tick starts a
// fresh cycle. With zero children RequireAll succeeds and RequireOne fails.
type Parallel struct {
	composite
	policy   Policy
	statuses []Status
}

// NewParallel constructs a Parallel with the given policy over the children.
func NewParallel(name string, policy Policy, children ...Node) *Parallel {
	p := &Parallel{composite: composite{node: newNode(`Parallel`, Config{`name`: name, `policy`: policy.String()})}, policy: policy}
	p.adopt(p, children)
	return p
}

// Policy returns the aggregation policy.
func (p *Parallel) Policy() Policy { return p.policy }

// Tick implements Node.Tick
func (p *Parallel) Tick(ctx context.Context, scope *Scope) Status {
	if len(p.children) == 0 {
		if p.policy == RequireOne {
			return p.conclude(scope, Failure)
		}
		return p.conclude(scope, Success)
	}
	if p.statuses == nil {
		// cycle start, zero value means not yet decided
		p.statuses = make([]Status, len(p.children))
	}
	if ctx.Err() != nil {
		return p.conclude(scope, Running)
	}
	outputs := make(chan func(), len(p.children))
	var count int
	for i, child := range p.children {
		if p.statuses[i] != 0 && p.statuses[i] != Running {
			continue
		}
		count++
		go func(i int, child Node) {
			status := child.Tick(ctx, scope)
			outputs <- func() { p.statuses[i] = status }
		}(i, child)
	}
	for x := 0; x < count; x++ {
		(<-outputs)()
	}
	status := p.fold()
	if status != Running {
		// cycle end
		p.statuses = nil
	}
	return p.conclude(scope, status)
}

func (p *Parallel) fold() Status {
	var successes, failures int
	for _, status := range p.statuses {
		switch status {
		case Success:
			successes++
		case Failure:
			failures++
		}
	}
	switch p.policy {
	case RequireOne:
		if successes > 0 {
			return Success
		}
		if failures == len(p.statuses) {
			return Failure
		}
	default:
		if failures > 0 {
			return Failure
		}
		if successes == len(p.statuses) {
			return Success
		}
	}
	return Running
}

// Reset implements Node.Reset
func (p *Parallel) Reset() {
	p.statuses = nil
	p.composite.Reset()
}

func (p *Parallel) accept(child Node) error { return p.addChild(p, child) }
