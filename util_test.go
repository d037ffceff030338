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
	"sync"
	"testing"
)

// newTestScope builds a scope with a fresh bus and blackboard, closing the
// bus on test cleanup.
func newTestScope(t *testing.T) *Scope {
	t.Helper()
	bus := NewEventBus(nil)
	t.Cleanup(bus.Close)
	return &Scope{Blackboard: NewBlackboard(bus), Events: bus, Tree: `test`}
}

// scriptedAction returns an action yielding the given statuses in order
// (sticking on the last), plus its invocation counter.
func scriptedAction(name string, statuses ...Status) (*Action, *int) {
	var (
		count int
		mu    sync.Mutex
	)
	action := NewAction(name, func(context.Context, *Blackboard) (Status, error) {
		mu.Lock()
		defer mu.Unlock()
		i := count
		count++
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		return statuses[i], nil
	})
	return action, &count
}

// collectEvents buffers every payload emitted for the named event.
func collectEvents(bus *EventBus, event string) func() []any {
	var (
		mu       sync.Mutex
		payloads []any
	)
	bus.On(event, func(payload any) {
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()
	})
	return func() []any {
		bus.Drain()
		mu.Lock()
		defer mu.Unlock()
		return append([]any(nil), payloads...)
	}
}
