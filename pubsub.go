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

	"github.com/sirupsen/logrus"
)

// PubSub is the topic-based publish/subscribe middleware. Delivery is
// asynchronous on a dedicated dispatch goroutine: each subscriber observes
// one topic's messages in publish order, with no ordering guarantees across
// subscribers.
type PubSub struct {
	middlewareCore
	mu  sync.Mutex
	bus *EventBus
}

// NewPubSub constructs a PubSub middleware.
func NewPubSub(name string) *PubSub {
	return &PubSub{middlewareCore: middlewareCore{name: name, kind: KindPubSub}}
}

// Start implements Middleware.Start
func (p *PubSub) Start(_ context.Context, forest *Forest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var logger logrus.FieldLogger
	if forest != nil {
		logger = forest.logger
	}
	p.bus = NewEventBus(logger)
	return nil
}

// Stop implements Middleware.Stop, draining pending deliveries.
func (p *PubSub) Stop() error {
	p.mu.Lock()
	bus := p.bus
	p.bus = nil
	p.mu.Unlock()
	if bus != nil {
		bus.Close()
	}
	return nil
}

// Subscribe registers handler for a topic, returning the handle needed to
// unsubscribe, or nil if the middleware is not started.
func (p *PubSub) Subscribe(topic string, handler Handler) *Subscription {
	p.mu.Lock()
	bus := p.bus
	p.mu.Unlock()
	if bus == nil {
		return nil
	}
	return bus.On(topic, handler)
}

// Unsubscribe removes a subscription.
func (p *PubSub) Unsubscribe(sub *Subscription) {
	p.mu.Lock()
	bus := p.bus
	p.mu.Unlock()
	if bus != nil {
		bus.Off(sub)
	}
}

// Publish delivers payload asynchronously to every subscriber of topic;
// a no-op if the middleware is not started.
func (p *PubSub) Publish(topic string, payload any) {
	p.mu.Lock()
	bus := p.bus
	p.mu.Unlock()
	if bus != nil {
		bus.Emit(topic, payload)
	}
}

// Drain blocks until every message published before the call has been
// delivered.
func (p *PubSub) Drain() {
	p.mu.Lock()
	bus := p.bus
	p.mu.Unlock()
	if bus != nil {
		bus.Drain()
	}
}
