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
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/go-bigbuff"
)

type (
	// ForestManager supervises multiple forests: forests are started in the
	// order implied by their inter-forest dependencies, driven by their own
	// run loops, and stopped in reverse order. The aggregate behavior
	// matches Runner: Done closes when every forest's run loop has exited,
	// Err returns a combined error if there are any, and Stop stops
	// everything. Any forest's run loop erroring also triggers stopping.
	ForestManager struct {
		mu      sync.RWMutex
		once    sync.Once
		worker  bigbuff.Worker
		done    chan struct{}
		stop    chan struct{}
		entries map[string]*forestEntry
		order   []string
		runners []Runner
		errs    []error
		started bool
	}

	forestEntry struct {
		forest *Forest
		deps   []string
	}

	errForestManager []error

	errManagerStarted struct{ error }
)

// ErrManagerStarted is returned by ForestManager.Add after the manager has
// started. Use errors.Is to check this case.
var ErrManagerStarted error = errManagerStarted{error: errors.New(`behaviorforest.ForestManager.Add already started`)}

// NewForestManager constructs an empty ForestManager.
func NewForestManager() *ForestManager {
	return &ForestManager{
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
		entries: make(map[string]*forestEntry),
	}
}

// Add registers a forest under the manager, depending on the named other
// forests having been started first. Registration is disallowed once the
// manager has started.
func (m *ForestManager) Add(name string, forest *Forest, deps ...string) error {
	if name == `` || forest == nil {
		return errors.New(`behaviorforest.ForestManager.Add nil forest or empty name`)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrManagerStarted
	}
	if _, ok := m.entries[name]; ok {
		return fmt.Errorf(`behaviorforest.ForestManager.Add duplicate name %q`, name)
	}
	m.entries[name] = &forestEntry{forest: forest, deps: append([]string(nil), deps...)}
	m.order = append(m.order, name)
	return nil
}

// Start starts every forest in dependency order, then launches a run loop
// per forest at the given interval. A forest failing to start rolls back the
// already started forests in reverse order.
func (m *ForestManager) Start(ctx context.Context, interval time.Duration) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerStarted
	}
	order, err := m.topoOrder()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.started = true
	m.order = order
	m.mu.Unlock()
	for i, name := range order {
		entry := m.entries[name]
		if err := entry.forest.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.entries[order[j]].forest.Stop()
			}
			m.Stop()
			return fmt.Errorf(`behaviorforest.ForestManager.Start forest %q: %w`, name, err)
		}
	}
	for _, name := range order {
		runner, err := m.entries[name].forest.Runner(ctx, interval)
		if err != nil {
			m.Stop()
			return fmt.Errorf(`behaviorforest.ForestManager.Start forest %q: %w`, name, err)
		}
		m.mu.Lock()
		m.runners = append(m.runners, runner)
		m.mu.Unlock()
		go m.handle(runner, m.worker.Do(m.run))
	}
	return nil
}

// Done will close when every forest's run loop has exited.
func (m *ForestManager) Done() <-chan struct{} {
	return m.done
}

// Err will return any combined error from the forest run loops.
func (m *ForestManager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.errs) != 0 {
		return errForestManager(m.errs)
	}
	return nil
}

// Stop stops every forest, in reverse start order, and is safe to call any
// number of times.
func (m *ForestManager) Stop() {
	m.once.Do(func() {
		close(m.stop)
		m.mu.RLock()
		runners := append([]Runner(nil), m.runners...)
		order := append([]string(nil), m.order...)
		m.mu.RUnlock()
		for i := len(runners) - 1; i >= 0; i-- {
			runners[i].Stop()
		}
		for i := len(order) - 1; i >= 0; i-- {
			if entry, ok := m.entries[order[i]]; ok {
				_ = entry.forest.Stop()
			}
		}
		m.worker.Do(m.run)()
	})
}

func (m *ForestManager) handle(r Runner, release func()) {
	select {
	case <-r.Done():
	case <-m.stop:
		r.Stop()
		<-r.Done()
	}
	// a forest stopping cancels its run context, which is a clean exit
	if err := r.Err(); err != nil && !errors.Is(err, context.Canceled) {
		m.mu.Lock()
		m.errs = append(m.errs, err)
		m.mu.Unlock()
		m.Stop()
	}
	release()
}

func (m *ForestManager) run(stop <-chan struct{}) {
	<-stop
	select {
	case <-m.stop:
		select {
		case <-m.done:
		default:
			close(m.done)
		}
	default:
	}
}

// topoOrder flattens the inter-forest dependency relation into a start
// order. Callers must hold m.mu.
func (m *ForestManager) topoOrder() ([]string, error) {
	for _, name := range m.order {
		for _, dep := range m.entries[name].deps {
			if _, ok := m.entries[dep]; !ok {
				return nil, fmt.Errorf(`%w: %q required by %q`, ErrUnknownDependency, dep, name)
			}
		}
	}
	var (
		order   []string
		placed  = make(map[string]struct{}, len(m.entries))
		pending = append([]string(nil), m.order...)
	)
	for len(pending) != 0 {
		var (
			ready []string
			next  []string
		)
		for _, name := range pending {
			ok := true
			for _, dep := range m.entries[name].deps {
				if _, placedOk := placed[dep]; !placedOk {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, name)
			} else {
				next = append(next, name)
			}
		}
		if len(ready) == 0 {
			sort.Strings(next)
			return nil, fmt.Errorf(`%w: %s`, ErrCyclicDependency, strings.Join(next, `, `))
		}
		for _, name := range ready {
			placed[name] = struct{}{}
		}
		order = append(order, ready...)
		pending = next
	}
	return order, nil
}

func (e errForestManager) Error() string {
	var b []byte
	for i, err := range e {
		if i != 0 {
			b = append(b, ' ', '|', ' ')
		}
		b = append(b, err.Error()...)
	}
	return string(b)
}

func (e errForestManager) Is(target error) bool {
	for _, err := range e {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e errManagerStarted) Unwrap() error { return e.error }

func (e errManagerStarted) Is(target error) bool {
	switch target.(type) {
	case errManagerStarted:
		return true
	default:
		return false
	}
}
