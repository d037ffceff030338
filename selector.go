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

// Selector is the dual of Sequence: it ticks children left-to-right from its
// resume index, succeeding fast on the first successful child, resuming on a
// running one, and failing once every child has failed. An empty selector
// fails.
type Selector struct {
	composite
}

// NewSelector constructs a Selector over the given children.
func NewSelector(name string, children ...Node) *Selector {
	s := &Selector{composite{node: newNode(`Selector`, Config{`name`: name})}}
	s.adopt(s, children)
	return s
}

// Tick implements Node.Tick
func (s *Selector) Tick(ctx context.Context, scope *Scope) Status {
	for s.runningChild < len(s.children) {
		if ctx.Err() != nil {
			return s.conclude(scope, Running)
		}
		switch s.children[s.runningChild].Tick(ctx, scope) {
		case Running:
			return s.conclude(scope, Running)
		case Failure:
			s.runningChild++
		default:
			s.runningChild = 0
			return s.conclude(scope, Success)
		}
	}
	s.runningChild = 0
	return s.conclude(scope, Failure)
}

func (s *Selector) accept(child Node) error { return s.addChild(s, child) }
