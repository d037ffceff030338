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

// SharedBlackboard exposes a second blackboard visible to every tree in the
// forest, with the same semantics as a tree's own: the single store is the
// serialization point totally ordering writes across trees.
type SharedBlackboard struct {
	middlewareCore
	mu         sync.Mutex
	blackboard *Blackboard
	bus        *EventBus
}

// NewSharedBlackboard constructs a SharedBlackboard middleware.
func NewSharedBlackboard(name string) *SharedBlackboard {
	return &SharedBlackboard{middlewareCore: middlewareCore{name: name, kind: KindSharedBlackboard}}
}

// Start implements Middleware.Start
func (s *SharedBlackboard) Start(_ context.Context, forest *Forest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var logger logrus.FieldLogger
	if forest != nil {
		logger = forest.logger
	}
	s.bus = NewEventBus(logger)
	s.blackboard = NewBlackboard(s.bus)
	return nil
}

// Stop implements Middleware.Stop, draining pending change notifications.
func (s *SharedBlackboard) Stop() error {
	s.mu.Lock()
	bus := s.bus
	s.bus, s.blackboard = nil, nil
	s.mu.Unlock()
	if bus != nil {
		bus.Close()
	}
	return nil
}

// Blackboard returns the forest-wide blackboard, nil unless started.
func (s *SharedBlackboard) Blackboard() *Blackboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blackboard
}
