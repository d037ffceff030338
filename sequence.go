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

// Sequence ticks children left-to-right from its resume index, failing fast
// on the first failing child, resuming on a running one, and succeeding once
// every child has succeeded. An empty sequence succeeds.
type Sequence struct {
	composite
}

// NewSequence constructs a Sequence over the given children.
func NewSequence(name string, children ...Node) *Sequence {
	s := &Sequence{composite{node: newNode(`Sequence`, Config{`name`: name})}}
	s.adopt(s, children)
	return s
}

// Tick implements Node.Tick
func (s *Sequence) Tick(ctx context.Context, scope *Scope) Status {
	for s.runningChild < len(s.children) {
		if ctx.Err() != nil {
			return s.conclude(scope, Running)
		}
		switch s.children[s.runningChild].Tick(ctx, scope) {
		case Running:
			return s.conclude(scope, Running)
		case Success:
			s.runningChild++
		default:
			s.runningChild = 0
			return s.conclude(scope, Failure)
		}
	}
	s.runningChild = 0
	return s.conclude(scope, Success)
}

func (s *Sequence) accept(child Node) error { return s.addChild(s, child) }
