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
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event names emitted by trees, blackboards, and middlewares.
const (
	// EventTreeTickStart is emitted at the start of every tree tick, with a TickEvent payload.
	EventTreeTickStart = `tree.tick.start`
	// EventTreeTickEnd is emitted at the end of every tree tick, with a TickEvent payload.
	EventTreeTickEnd = `tree.tick.end`
	// EventNodeStatusChanged is emitted when a node's status transitions, with a StatusChangedEvent payload.
	EventNodeStatusChanged = `node.status.changed`
	// EventBlackboardChanged is emitted after every successful blackboard write, with a BlackboardChangedEvent payload.
	EventBlackboardChanged = `blackboard.changed`
	// EventError is emitted when a leaf fails internally, with an ErrorEvent payload.
	EventError = `error`
	// EventLog is emitted by Log nodes, with a LogEvent payload.
	EventLog = `log`
	// EventHandlerError is the meta-event emitted when an event handler panics, with a HandlerErrorEvent payload.
	EventHandlerError = `handler_error`
	// EventTaskClaimed is emitted by the task board when a task is claimed, with a TaskClaimedEvent payload.
	EventTaskClaimed = `task.claimed`
	// EventTaskExpired is emitted by the task board when a task's TTL lapses, with a TaskExpiredEvent payload.
	EventTaskExpired = `task.expired`
)

type (
	// TickEvent is the payload for EventTreeTickStart and EventTreeTickEnd,
	// Status being meaningful only on tick end.
	TickEvent struct {
		Tree   string
		Round  uint64
		Status Status
	}

	// StatusChangedEvent is the payload for EventNodeStatusChanged.
	StatusChangedEvent struct {
		Path string
		Old  Status
		New  Status
	}

	// BlackboardChangedEvent is the payload for EventBlackboardChanged. New is
	// Removed when the key was deleted.
	BlackboardChangedEvent struct {
		Key string
		Old any
		New any
	}

	// ErrorEvent is the payload for EventError.
	ErrorEvent struct {
		Source string
		Kind   string
		Detail string
	}

	// LogEvent is the payload for EventLog.
	LogEvent struct {
		Tree    string
		Node    string
		Message string
	}

	// HandlerErrorEvent is the payload for EventHandlerError.
	HandlerErrorEvent struct {
		Event  string
		Detail string
	}

	// TaskClaimedEvent is the payload for EventTaskClaimed.
	TaskClaimedEvent struct {
		TaskID string
		Tree   string
	}

	// TaskExpiredEvent is the payload for EventTaskExpired.
	TaskExpiredEvent struct {
		TaskID string
	}

	// Handler receives event payloads, on the bus goroutine.
	Handler func(payload any)

	// Subscription is an opaque handle identifying a single On registration.
	Subscription struct {
		event   string
		handler Handler
	}

	// EventBus is an asynchronous publish/subscribe bus. Emit never blocks on
	// handler work; handlers for one event run in subscription order on a
	// single dispatch goroutine, so dispatch across the whole bus is FIFO.
	// Handler panics are isolated, logged, and re-emitted as EventHandlerError.
	//
	// The zero value is not usable, see NewEventBus.
	EventBus struct {
		mu          sync.Mutex
		cond        *sync.Cond
		subs        map[string][]*Subscription
		queue       []busEvent
		dispatching bool
		closed      bool
		logger      logrus.FieldLogger
	}

	busEvent struct {
		name    string
		payload any
	}
)

// NewEventBus constructs an EventBus and starts its dispatch goroutine, which
// runs until Close. A nil logger defaults to logrus.StandardLogger().
func NewEventBus(logger logrus.FieldLogger) *EventBus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &EventBus{
		subs:   make(map[string][]*Subscription),
		logger: logger,
	}
	b.cond = sync.NewCond(&b.mu)
	go b.run()
	return b
}

// On registers handler for the named event, appending it after any existing
// subscribers, and returns the handle needed to unsubscribe. A nil handler
// returns nil without registering anything.
func (b *EventBus) On(event string, handler Handler) *Subscription {
	if handler == nil {
		return nil
	}
	s := &Subscription{event: event, handler: handler}
	b.mu.Lock()
	b.subs[event] = append(b.subs[event], s)
	b.mu.Unlock()
	return s
}

// Off removes a subscription, after which the handler receives no further
// events. Off is a no-op for nil or already-removed subscriptions.
func (b *EventBus) Off(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[s.event]
	for i, v := range subs {
		if v == s {
			b.subs[s.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[s.event]) == 0 {
		delete(b.subs, s.event)
	}
}

// Emit enqueues an event for asynchronous dispatch and returns immediately.
// Events emitted after Close are dropped.
func (b *EventBus) Emit(event string, payload any) {
	b.mu.Lock()
	if !b.closed {
		b.queue = append(b.queue, busEvent{name: event, payload: payload})
		b.cond.Broadcast()
	}
	b.mu.Unlock()
}

// Drain blocks until every event enqueued before the call has been dispatched.
func (b *EventBus) Drain() {
	b.mu.Lock()
	for len(b.queue) != 0 || b.dispatching {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Close stops the dispatch goroutine after the queue drains. Close is
// idempotent, and blocks until dispatch has finished.
func (b *EventBus) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	for len(b.queue) != 0 || b.dispatching {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

func (b *EventBus) run() {
	b.mu.Lock()
	for {
		if len(b.queue) == 0 {
			b.dispatching = false
			b.cond.Broadcast()
			if b.closed {
				b.mu.Unlock()
				return
			}
			b.cond.Wait()
			continue
		}
		ev := b.queue[0]
		b.queue = b.queue[1:]
		b.dispatching = true
		handlers := append([]*Subscription(nil), b.subs[ev.name]...)
		b.mu.Unlock()
		for _, s := range handlers {
			b.dispatch(ev, s)
		}
		b.mu.Lock()
	}
}

func (b *EventBus) dispatch(ev busEvent, s *Subscription) {
	defer func() {
		if r := recover(); r != nil {
			detail := fmt.Sprint(r)
			b.logger.WithField(`event`, ev.name).Warnf(`behaviorforest.EventBus handler panic: %s`, detail)
			if ev.name != EventHandlerError {
				b.Emit(EventHandlerError, HandlerErrorEvent{Event: ev.name, Detail: detail})
			}
		}
	}()
	s.handler(ev.payload)
}
