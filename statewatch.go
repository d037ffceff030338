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
)

type (
	// WatchHandler receives the new value of a watched key, or Removed when
	// the key was deleted.
	WatchHandler func(value any)

	watchKey struct {
		tree string
		key  string
	}

	// StateWatch lets trees observe another tree's local blackboard: writes
	// on any tree's blackboard re-dispatch to the handlers watching that
	// (tree, key) pair. Handlers run on the source tree's event bus.
	StateWatch struct {
		middlewareCore
		mu       sync.Mutex
		watchers map[watchKey][]WatchHandler
		taps     []forwardedSubscription
	}
)

// NewStateWatch constructs a StateWatch middleware.
func NewStateWatch(name string) *StateWatch {
	return &StateWatch{
		middlewareCore: middlewareCore{name: name, kind: KindStateWatch},
		watchers:       make(map[watchKey][]WatchHandler),
	}
}

// Start implements Middleware.Start, tapping the blackboard change events of
// every tree registered in the forest.
func (w *StateWatch) Start(_ context.Context, forest *Forest) error {
	if forest == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range forest.Nodes() {
		tree := n.Name
		bus := n.Tree.Events()
		sub := bus.On(EventBlackboardChanged, func(payload any) {
			c, ok := payload.(BlackboardChangedEvent)
			if !ok {
				return
			}
			w.notify(tree, c.Key, c.New)
		})
		w.taps = append(w.taps, forwardedSubscription{bus: bus, sub: sub})
	}
	return nil
}

// Stop implements Middleware.Stop
func (w *StateWatch) Stop() error {
	w.mu.Lock()
	taps := w.taps
	w.taps = nil
	w.mu.Unlock()
	for _, tap := range taps {
		tap.bus.Off(tap.sub)
	}
	return nil
}

// Watch registers handler for changes to key on the named tree's blackboard.
func (w *StateWatch) Watch(tree, key string, handler WatchHandler) {
	if handler == nil {
		return
	}
	k := watchKey{tree: tree, key: key}
	w.mu.Lock()
	w.watchers[k] = append(w.watchers[k], handler)
	w.mu.Unlock()
}

// Unwatch removes every handler for the (tree, key) pair.
func (w *StateWatch) Unwatch(tree, key string) {
	w.mu.Lock()
	delete(w.watchers, watchKey{tree: tree, key: key})
	w.mu.Unlock()
}

func (w *StateWatch) notify(tree, key string, value any) {
	w.mu.Lock()
	handlers := append([]WatchHandler(nil), w.watchers[watchKey{tree: tree, key: key}]...)
	w.mu.Unlock()
	for _, handler := range handlers {
		handler(value)
	}
}
