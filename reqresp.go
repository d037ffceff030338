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
	"sync"
	"time"
)

type (
	// ServiceHandler implements one ReqResp service.
	ServiceHandler func(ctx context.Context, request any) (any, error)

	// ReqResp is the request/response middleware: one handler per service
	// name, with calls awaiting the handler and failing with kinds matching
	// ErrNoService, ErrService, ErrTimeout, or ErrCancelled.
	ReqResp struct {
		middlewareCore
		mu       sync.RWMutex
		handlers map[string]ServiceHandler
	}

	// CallOption configures a single ReqResp call.
	CallOption func(c *callConfig)

	callConfig struct {
		timeout time.Duration
	}
)

// WithCallTimeout bounds a single call, surfacing as ErrTimeout.
func WithCallTimeout(timeout time.Duration) CallOption {
	return func(c *callConfig) { c.timeout = timeout }
}

// NewReqResp constructs a ReqResp middleware.
func NewReqResp(name string) *ReqResp {
	return &ReqResp{
		middlewareCore: middlewareCore{name: name, kind: KindReqResp},
		handlers:       make(map[string]ServiceHandler),
	}
}

// Register installs the handler for a service, replacing any previous one.
func (r *ReqResp) Register(service string, handler ServiceHandler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	r.handlers[service] = handler
	r.mu.Unlock()
}

// Unregister removes the handler for a service.
func (r *ReqResp) Unregister(service string) {
	r.mu.Lock()
	delete(r.handlers, service)
	r.mu.Unlock()
}

// Call awaits the service's handler with the given request. Handler errors
// propagate wrapped as ErrService; a missing handler fails with ErrNoService;
// a timeout surfaces as ErrTimeout (not wrapped in ErrService), and
// cancellation as ErrCancelled wrapped in ErrService, leaving the reaction to
// the calling tree.
func (r *ReqResp) Call(ctx context.Context, service string, request any, opts ...CallOption) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var config callConfig
	for _, opt := range opts {
		opt(&config)
	}
	r.mu.RLock()
	handler := r.handlers[service]
	r.mu.RUnlock()
	if handler == nil {
		return nil, fmt.Errorf(`%w: %q`, ErrNoService, service)
	}
	if config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.timeout)
		defer cancel()
	}
	type result struct {
		response any
		err      error
	}
	done := make(chan result, 1)
	go func() {
		var v result
		defer func() {
			if r := recover(); r != nil {
				v = result{err: fmt.Errorf(`handler panic: %v`, r)}
			}
			done <- v
		}()
		v.response, v.err = handler(ctx, request)
	}()
	select {
	case v := <-done:
		if v.err != nil {
			return nil, fmt.Errorf(`%w: %q: %w`, ErrService, service, v.err)
		}
		return v.response, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf(`%w: %q`, ErrTimeout, service)
		}
		return nil, fmt.Errorf(`%w: %q: %w`, ErrService, service, ErrCancelled)
	}
}
