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
	"sort"
	"sync"
)

// Removed is the sentinel value delivered to change handlers and state
// watchers in place of a value when the key was deleted during dispatch.
var Removed removedValue

type (
	removedValue struct{}

	// Blackboard is a concurrency-safe keyed store shared by every node in a
	// tree (or, for the shared variant, every tree in a forest). Writes are
	// atomic and totally ordered per blackboard; change handlers run on the
	// attached event bus, never inline under the lock.
	//
	// An overlay Blackboard (see NewOverlay) layers transient values over a
	// base: reads fall through, writes land in the overlay only.
	Blackboard struct {
		mu     sync.RWMutex
		data   map[string]any
		base   *Blackboard
		events *EventBus
	}
)

// String implements fmt.Stringer
func (removedValue) String() string { return `<removed>` }

// NewBlackboard constructs an empty Blackboard. A non-nil events bus receives
// EventBlackboardChanged after every Set and Remove.
func NewBlackboard(events *EventBus) *Blackboard {
	return &Blackboard{
		data:   make(map[string]any),
		events: events,
	}
}

// NewOverlay constructs a Blackboard layering values over base, sharing the
// base's event bus. The overlay is independent state, intended to be
// discarded by the caller once the scoped work completes.
func NewOverlay(base *Blackboard, values map[string]any) *Blackboard {
	b := &Blackboard{
		data: make(map[string]any, len(values)),
		base: base,
	}
	if base != nil {
		b.events = base.events
	}
	for k, v := range values {
		b.data[k] = v
	}
	return b
}

// Get returns the value stored under key, falling through to the base layer
// for overlays.
func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	v, ok := b.data[key]
	b.mu.RUnlock()
	if !ok && b.base != nil {
		return b.base.Get(key)
	}
	return v, ok
}

// GetDefault returns the value stored under key, or def if absent.
func (b *Blackboard) GetDefault(key string, def any) any {
	if v, ok := b.Get(key); ok {
		return v
	}
	return def
}

// Set stores value under key, then publishes the change.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	old, had := b.data[key]
	b.data[key] = value
	b.mu.Unlock()
	if !had && b.base != nil {
		old, _ = b.base.Get(key)
	}
	b.changed(key, old, value)
}

// Has returns true if key is present.
func (b *Blackboard) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Remove deletes key, publishing the change with Removed as the new value.
// Removing an absent key is a no-op and publishes nothing.
func (b *Blackboard) Remove(key string) {
	b.mu.Lock()
	old, had := b.data[key]
	delete(b.data, key)
	b.mu.Unlock()
	if had {
		b.changed(key, old, Removed)
	}
}

// Keys returns the present keys in sorted order, including base-layer keys
// for overlays.
func (b *Blackboard) Keys() []string {
	seen := make(map[string]struct{})
	for l := b; l != nil; l = l.base {
		l.mu.RLock()
		for k := range l.data {
			seen[k] = struct{}{}
		}
		l.mu.RUnlock()
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of present keys.
func (b *Blackboard) Len() int { return len(b.Keys()) }

// Clear removes every key from this layer without publishing changes.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	b.data = make(map[string]any)
	b.mu.Unlock()
}

// OnChange registers handler to be called after every successful write to
// key, receiving the old and new values (new is Removed on deletion).
// Handlers run on the event bus; OnChange returns nil if the blackboard has
// no bus attached.
func (b *Blackboard) OnChange(key string, handler func(old, new any)) *Subscription {
	if b.events == nil || handler == nil {
		return nil
	}
	return b.events.On(EventBlackboardChanged, func(payload any) {
		if c, ok := payload.(BlackboardChangedEvent); ok && c.Key == key {
			handler(c.Old, c.New)
		}
	})
}

func (b *Blackboard) changed(key string, old, new any) {
	if b.events != nil {
		b.events.Emit(EventBlackboardChanged, BlackboardChangedEvent{Key: key, Old: old, New: new})
	}
}
