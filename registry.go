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
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Factory constructs a node of a registered kind from its config.
	Factory func(config Config) (Node, error)

	// Registry maps node type names to factories, and is consulted by the
	// XML loader for every non-reserved element name. Safe for concurrent
	// use.
	Registry struct {
		mu        sync.RWMutex
		factories map[string]Factory
		logger    logrus.FieldLogger
	}
)

// DefaultRegistry is the process-wide registry used when none is configured
// explicitly; it carries all built-in kinds. See also ResetDefaultRegistry.
var DefaultRegistry = NewRegistry()

// NewRegistry constructs a Registry pre-populated with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		logger:    logrus.StandardLogger(),
	}
	r.registerBuiltins()
	return r
}

// ResetDefaultRegistry replaces DefaultRegistry with a fresh instance,
// discarding user registrations. Intended for tests.
func ResetDefaultRegistry() { DefaultRegistry = NewRegistry() }

// Register installs a factory under the given type name. Re-registration
// replaces the previous factory and logs a warning.
func (r *Registry) Register(kind string, factory Factory) {
	if kind == `` || factory == nil {
		return
	}
	r.mu.Lock()
	_, replaced := r.factories[kind]
	r.factories[kind] = factory
	r.mu.Unlock()
	if replaced {
		r.logger.Warnf(`behaviorforest.Registry replacing node type %q`, kind)
	}
}

// Create constructs a fresh node of the named kind, or fails with a kind
// matching ErrUnknownNodeType via errors.Is.
func (r *Registry) Create(kind string, config Config) (Node, error) {
	r.mu.RLock()
	factory := r.factories[kind]
	r.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf(`%w: %q`, ErrUnknownNodeType, kind)
	}
	return factory(config)
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) registerBuiltins() {
	r.Register(`Sequence`, func(config Config) (Node, error) {
		s := &Sequence{composite{node: newNode(`Sequence`, config)}}
		return s, nil
	})
	r.Register(`Selector`, func(config Config) (Node, error) {
		s := &Selector{composite{node: newNode(`Selector`, config)}}
		return s, nil
	})
	r.Register(`Parallel`, func(config Config) (Node, error) {
		policy, err := ParsePolicy(config.Get(`policy`, ``))
		if err != nil {
			return nil, err
		}
		return &Parallel{composite: composite{node: newNode(`Parallel`, config)}, policy: policy}, nil
	})
	r.Register(`Inverter`, func(config Config) (Node, error) {
		return &Inverter{decorator{node: newNode(`Inverter`, config)}}, nil
	})
	r.Register(`Repeater`, func(config Config) (Node, error) {
		count, err := config.Count(`count`, 1)
		if err != nil {
			return nil, err
		}
		return &Repeater{decorator: decorator{node: newNode(`Repeater`, config)}, count: count}, nil
	})
	r.Register(`UntilSuccess`, func(config Config) (Node, error) {
		max, err := config.Int(`max_attempts`, 0)
		if err != nil {
			return nil, err
		}
		return &UntilSuccess{decorator: decorator{node: newNode(`UntilSuccess`, config)}, maxAttempts: max}, nil
	})
	r.Register(`UntilFailure`, func(config Config) (Node, error) {
		max, err := config.Int(`max_attempts`, 0)
		if err != nil {
			return nil, err
		}
		return &UntilFailure{decorator: decorator{node: newNode(`UntilFailure`, config)}, maxAttempts: max}, nil
	})
	r.Register(`Log`, func(config Config) (Node, error) {
		return &Log{node: newNode(`Log`, config), message: config.Get(`message`, ``)}, nil
	})
	r.Register(`Wait`, func(config Config) (Node, error) {
		duration, err := config.Duration(`duration`, 0)
		if err != nil {
			return nil, err
		}
		return &Wait{node: newNode(`Wait`, config), duration: duration}, nil
	})
	r.Register(`SetBlackboard`, func(config Config) (Node, error) {
		return &SetBlackboard{node: newNode(`SetBlackboard`, config), key: config.Get(`key`, ``), value: config.Get(`value`, ``)}, nil
	})
	r.Register(`CheckBlackboard`, func(config Config) (Node, error) {
		return &CheckBlackboard{node: newNode(`CheckBlackboard`, config), key: config.Get(`key`, ``), expected: config.Get(`expected_value`, ``)}, nil
	})
	r.Register(`Compare`, func(config Config) (Node, error) {
		c, err := NewCompare(config.Name(), config.Get(`left`, ``), config.Get(`op`, `==`), config.Get(`right`, ``))
		if err != nil {
			return nil, err
		}
		c.config = config
		c.name = config.Name()
		return c, nil
	})
}

// Int coerces the value under key to an int, or def if absent.
func (c Config) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok || v == `` {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf(`behaviorforest.Config invalid int %q for %q`, v, key)
	}
	return n, nil
}

// Count coerces the value under key to an int, accepting `infinite` (and
// `inf`) as -1, or def if absent.
func (c Config) Count(key string, def int) (int, error) {
	switch c[key] {
	case `infinite`, `inf`:
		return -1, nil
	}
	return c.Int(key, def)
}

// Bool coerces the value under key to a bool, or def if absent.
func (c Config) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok || v == `` {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf(`behaviorforest.Config invalid bool %q for %q`, v, key)
	}
	return b, nil
}

// Duration coerces the value under key to a duration, accepting either a Go
// duration string or fractional seconds, or def if absent.
func (c Config) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := c[key]
	if !ok || v == `` {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if s, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(s * float64(time.Second)), nil
	}
	return 0, fmt.Errorf(`behaviorforest.Config invalid duration %q for %q`, v, key)
}
