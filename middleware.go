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
	"fmt"
)

// Middleware kinds accepted by NewMiddleware and the XML Middleware element.
const (
	KindPubSub           = `pubsub`
	KindReqResp          = `reqresp`
	KindSharedBlackboard = `shared_blackboard`
	KindStateWatch       = `state_watch`
	KindTaskBoard        = `task_board`
	KindBehaviorCall     = `behavior_call`
)

type (
	// Middleware is a typed inter-tree communication channel attached to a
	// forest, receiving lifecycle callbacks around start/stop and every tick
	// round. Concrete variants each expose their own statically-typed
	// operations; retrieve them via the *Of accessors, which fail on variant
	// mismatch.
	Middleware interface {
		// Name returns the channel's unique name within its forest.
		Name() string
		// Kind returns the channel variant, one of the Kind* constants.
		Kind() string
		// Start is called by Forest.Start, in registration order.
		Start(ctx context.Context, forest *Forest) error
		// Stop is called by Forest.Stop, in reverse registration order.
		Stop() error
		// BeforeTick is called before each forest round.
		BeforeTick(round uint64)
		// AfterTick is called after each forest round with the tick results.
		AfterTick(round uint64, results map[string]Status)
	}

	// middlewareCore is the embeddable no-op base for middleware variants.
	middlewareCore struct {
		name string
		kind string
	}
)

func (m *middlewareCore) Name() string                         { return m.name }
func (m *middlewareCore) Kind() string                         { return m.kind }
func (m *middlewareCore) Start(context.Context, *Forest) error { return nil }
func (m *middlewareCore) Stop() error                          { return nil }
func (m *middlewareCore) BeforeTick(uint64)                    {}
func (m *middlewareCore) AfterTick(uint64, map[string]Status)  {}

// NewMiddleware constructs a middleware of the given kind, as used by the
// XML BehaviorForest format.
func NewMiddleware(kind, name string, config Config) (Middleware, error) {
	switch kind {
	case KindPubSub:
		return NewPubSub(name), nil
	case KindReqResp:
		return NewReqResp(name), nil
	case KindSharedBlackboard:
		return NewSharedBlackboard(name), nil
	case KindStateWatch:
		return NewStateWatch(name), nil
	case KindTaskBoard:
		ttl, err := config.Duration(`ttl`, 0)
		if err != nil {
			return nil, err
		}
		return NewTaskBoard(name, ttl), nil
	case KindBehaviorCall:
		maxDepth, err := config.Int(`max_depth`, DefaultCallDepth)
		if err != nil {
			return nil, err
		}
		return NewBehaviorCall(name, maxDepth), nil
	default:
		return nil, fmt.Errorf(`%w: unknown kind %q`, ErrUnknownMiddleware, kind)
	}
}

// middlewareOf retrieves a middleware by name, checking the channel variant.
func middlewareOf[T Middleware](f *Forest, name string) (T, error) {
	var zero T
	m, ok := f.Middleware(name)
	if !ok {
		return zero, fmt.Errorf(`%w: %q`, ErrUnknownMiddleware, name)
	}
	t, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf(`%w: %q is a %s channel`, ErrMiddlewareKind, name, m.Kind())
	}
	return t, nil
}

// PubSubOf retrieves a PubSub channel by name.
func PubSubOf(f *Forest, name string) (*PubSub, error) { return middlewareOf[*PubSub](f, name) }

// ReqRespOf retrieves a ReqResp channel by name.
func ReqRespOf(f *Forest, name string) (*ReqResp, error) { return middlewareOf[*ReqResp](f, name) }

// SharedBlackboardOf retrieves a SharedBlackboard channel by name.
func SharedBlackboardOf(f *Forest, name string) (*SharedBlackboard, error) {
	return middlewareOf[*SharedBlackboard](f, name)
}

// StateWatchOf retrieves a StateWatch channel by name.
func StateWatchOf(f *Forest, name string) (*StateWatch, error) {
	return middlewareOf[*StateWatch](f, name)
}

// TaskBoardOf retrieves a TaskBoard channel by name.
func TaskBoardOf(f *Forest, name string) (*TaskBoard, error) {
	return middlewareOf[*TaskBoard](f, name)
}

// BehaviorCallOf retrieves a BehaviorCall channel by name.
func BehaviorCallOf(f *Forest, name string) (*BehaviorCall, error) {
	return middlewareOf[*BehaviorCall](f, name)
}
