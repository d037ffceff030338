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

	"github.com/sirupsen/logrus"
)

const (
	// Worker is the default forest node type.
	Worker NodeType = iota
	// Master marks a forest node coordinating others; advisory.
	Master
	// Monitor marks a forest node observing others; advisory.
	Monitor
	// Coordinator marks a forest node routing work between others; advisory.
	Coordinator
)

const (
	// StateIdle is a forest's state before Start.
	StateIdle ForestState = iota
	// StateRunning is a forest's state between Start and Stop.
	StateRunning
	// StateStopped is a forest's state after Stop; terminal.
	StateStopped
)

type (
	// NodeType is the advisory role of a tree within its forest.
	NodeType int

	// ForestState is the run-state of a forest.
	ForestState int

	// ForestNode wraps a tree registered in a forest, together with its
	// advisory role, the capabilities used by task-board routing, and the
	// names of forest nodes that must be ticked before it within one round.
	ForestNode struct {
		Name         string
		Tree         *Tree
		Type         NodeType
		Capabilities []string
		Dependencies []string
	}

	// Forest is a named set of trees ticked together: each round partitions
	// the trees into dependency layers and ticks each layer's trees
	// concurrently, with the attached middlewares observing every round.
	Forest struct {
		name        string
		mu          sync.Mutex
		nodes       map[string]*ForestNode
		order       []string
		middlewares []Middleware
		state       ForestState
		round       uint64
		events      *EventBus
		logger      logrus.FieldLogger
		runCtx      context.Context
		cancel      context.CancelFunc
		forward     bool
		forwards    []forwardedSubscription
	}

	// ForestOption configures a Forest at construction.
	ForestOption func(f *Forest)

	forwardedSubscription struct {
		bus *EventBus
		sub *Subscription
	}
)

// String returns a string representation of the node type
func (t NodeType) String() string {
	switch t {
	case Worker:
		return `worker`
	case Master:
		return `master`
	case Monitor:
		return `monitor`
	case Coordinator:
		return `coordinator`
	default:
		return fmt.Sprintf("unknown node type (%d)", t)
	}
}

// ParseNodeType maps the textual node type representations used by the XML
// format to NodeType values, defaulting to Worker for the empty string.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToLower(s) {
	case `worker`, ``:
		return Worker, nil
	case `master`:
		return Master, nil
	case `monitor`:
		return Monitor, nil
	case `coordinator`:
		return Coordinator, nil
	default:
		return 0, fmt.Errorf("behaviorforest.ParseNodeType unknown node type %q", s)
	}
}

// String returns a string representation of the forest state
func (s ForestState) String() string {
	switch s {
	case StateIdle:
		return `idle`
	case StateRunning:
		return `running`
	case StateStopped:
		return `stopped`
	default:
		return fmt.Sprintf("unknown forest state (%d)", s)
	}
}

// HasCapabilities returns true if the node's capability set is a superset of
// required.
func (n *ForestNode) HasCapabilities(required []string) bool {
	for _, r := range required {
		found := false
		for _, c := range n.Capabilities {
			if c == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// WithForestLogger configures the forest's logger, defaulting to
// logrus.StandardLogger().
func WithForestLogger(logger logrus.FieldLogger) ForestOption {
	return func(f *Forest) { f.logger = logger }
}

// WithEventForwarding forwards every tree's events onto the forest bus while
// the forest is running.
func WithEventForwarding() ForestOption {
	return func(f *Forest) { f.forward = true }
}

// NewForest constructs an empty forest in the idle state.
func NewForest(name string, opts ...ForestOption) *Forest {
	f := &Forest{
		name:  name,
		nodes: make(map[string]*ForestNode),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logrus.StandardLogger()
	}
	f.events = NewEventBus(f.logger)
	return f
}

// Name returns the forest's name.
func (f *Forest) Name() string { return f.name }

// State returns the current run-state.
func (f *Forest) State() ForestState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Events returns the forest-level event bus, used by middlewares and by
// event forwarding.
func (f *Forest) Events() *EventBus { return f.events }

// AddNode registers a tree in the forest. Names are unique; registration is
// disallowed while the forest is running.
func (f *Forest) AddNode(n *ForestNode) error {
	if n == nil || n.Tree == nil {
		return errors.New(`behaviorforest.Forest.AddNode nil node or tree`)
	}
	if n.Name == `` {
		return errors.New(`behaviorforest.Forest.AddNode empty name`)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateRunning {
		return fmt.Errorf(`%w: cannot add node while %s`, ErrInvalidForestState, f.state)
	}
	if _, ok := f.nodes[n.Name]; ok {
		return fmt.Errorf(`behaviorforest.Forest.AddNode duplicate name %q`, n.Name)
	}
	f.nodes[n.Name] = n
	f.order = append(f.order, n.Name)
	return nil
}

// RemoveNode unregisters a tree; disallowed while the forest is running.
func (f *Forest) RemoveNode(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateRunning {
		return fmt.Errorf(`%w: cannot remove node while %s`, ErrInvalidForestState, f.state)
	}
	if _, ok := f.nodes[name]; !ok {
		return fmt.Errorf(`behaviorforest.Forest.RemoveNode unknown node %q`, name)
	}
	delete(f.nodes, name)
	for i, v := range f.order {
		if v == name {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// Node returns the named forest node.
func (f *Forest) Node(name string) (*ForestNode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[name]
	return n, ok
}

// Nodes returns the registered forest nodes in registration order.
func (f *Forest) Nodes() []*ForestNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	nodes := make([]*ForestNode, 0, len(f.order))
	for _, name := range f.order {
		nodes = append(nodes, f.nodes[name])
	}
	return nodes
}

// AddMiddleware attaches a middleware; names are unique, and attachment is
// disallowed while the forest is running.
func (f *Forest) AddMiddleware(m Middleware) error {
	if m == nil {
		return errors.New(`behaviorforest.Forest.AddMiddleware nil middleware`)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateRunning {
		return fmt.Errorf(`%w: cannot add middleware while %s`, ErrInvalidForestState, f.state)
	}
	for _, v := range f.middlewares {
		if v.Name() == m.Name() {
			return fmt.Errorf(`behaviorforest.Forest.AddMiddleware duplicate name %q`, m.Name())
		}
	}
	f.middlewares = append(f.middlewares, m)
	return nil
}

// RemoveMiddleware detaches the named middleware; disallowed while running.
func (f *Forest) RemoveMiddleware(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateRunning {
		return fmt.Errorf(`%w: cannot remove middleware while %s`, ErrInvalidForestState, f.state)
	}
	for i, v := range f.middlewares {
		if v.Name() == name {
			f.middlewares = append(f.middlewares[:i:i], f.middlewares[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf(`behaviorforest.Forest.RemoveMiddleware unknown middleware %q`, name)
}

// Middleware returns the named middleware.
func (f *Forest) Middleware(name string) (Middleware, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.middlewares {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// Start transitions the forest from idle to running, starting middlewares in
// registration order. A middleware failing to start rolls back the already
// started middlewares in reverse order and leaves the forest idle.
func (f *Forest) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f.mu.Lock()
	if f.state != StateIdle {
		defer f.mu.Unlock()
		return fmt.Errorf(`%w: cannot start while %s`, ErrInvalidForestState, f.state)
	}
	f.state = StateRunning
	f.runCtx, f.cancel = context.WithCancel(ctx)
	runCtx := f.runCtx
	middlewares := append([]Middleware(nil), f.middlewares...)
	f.mu.Unlock()
	for i, m := range middlewares {
		if err := m.Start(runCtx, f); err != nil {
			for j := i - 1; j >= 0; j-- {
				if stopErr := middlewares[j].Stop(); stopErr != nil {
					f.logger.WithField(`middleware`, middlewares[j].Name()).Warnf(`behaviorforest.Forest.Start rollback stop failed: %s`, stopErr)
				}
			}
			f.mu.Lock()
			f.state = StateIdle
			f.cancel()
			f.runCtx, f.cancel = nil, nil
			f.mu.Unlock()
			return fmt.Errorf(`behaviorforest.Forest.Start middleware %q: %w`, m.Name(), err)
		}
	}
	if f.forward {
		f.startForwarding()
	}
	return nil
}

// Stop transitions the forest from running to stopped, cancelling in-flight
// ticks and stopping middlewares in reverse registration order. Stop is
// idempotent after the first call.
func (f *Forest) Stop() error {
	f.mu.Lock()
	switch f.state {
	case StateStopped:
		f.mu.Unlock()
		return nil
	case StateRunning:
	default:
		defer f.mu.Unlock()
		return fmt.Errorf(`%w: cannot stop while %s`, ErrInvalidForestState, f.state)
	}
	f.state = StateStopped
	cancel := f.cancel
	middlewares := append([]Middleware(nil), f.middlewares...)
	forwards := f.forwards
	f.forwards = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	for _, fw := range forwards {
		fw.bus.Off(fw.sub)
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		if err := middlewares[i].Stop(); err != nil {
			f.logger.WithField(`middleware`, middlewares[i].Name()).Warnf(`behaviorforest.Forest.Stop middleware stop failed: %s`, err)
		}
	}
	return nil
}

// Tick runs one round over all trees: the dependency relation partitions the
// trees into a topological order of layers, layers run in order, and trees
// within one layer tick concurrently. Returns the per-tree statuses.
func (f *Forest) Tick(ctx context.Context) (map[string]Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	f.mu.Lock()
	layers, err := f.layers()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.round++
	round := f.round
	middlewares := append([]Middleware(nil), f.middlewares...)
	f.mu.Unlock()
	for _, m := range middlewares {
		m.BeforeTick(round)
	}
	var (
		resultsMu sync.Mutex
		results   = make(map[string]Status)
	)
	for _, layer := range layers {
		var wg sync.WaitGroup
		for _, n := range layer {
			wg.Add(1)
			go func(n *ForestNode) {
				defer wg.Done()
				status := n.Tree.Tick(ctx)
				resultsMu.Lock()
				results[n.Name] = status
				resultsMu.Unlock()
			}(n)
		}
		wg.Wait()
	}
	for _, m := range middlewares {
		m.AfterTick(round, results)
	}
	return results, nil
}

// Runner starts the forest if it is idle, then returns a Runner ticking it
// at the given period until the forest stops (which cancels the run context)
// or Runner.Stop is called. Tick scheduling compensates for drift: each
// round targets the previous target plus interval, not the previous
// completion plus interval. Note that a panic will occur if interval is
// <= 0.
func (f *Forest) Runner(ctx context.Context, interval time.Duration) (Runner, error) {
	if interval <= 0 {
		panic(errors.New(`behaviorforest.Forest.Runner interval <= 0`))
	}
	if f.State() == StateIdle {
		if err := f.Start(ctx); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	runCtx := f.runCtx
	f.mu.Unlock()
	if runCtx == nil {
		return nil, fmt.Errorf(`%w: cannot run while %s`, ErrInvalidForestState, f.State())
	}
	return newRunner(runCtx, interval, func(ctx context.Context) error {
		_, err := f.Tick(ctx)
		return err
	}), nil
}

// Run repeatedly ticks the forest at the given period until Stop is called,
// starting the forest first if it is idle, by awaiting a Runner. The panic
// cases for Runner apply.
func (f *Forest) Run(ctx context.Context, interval time.Duration) error {
	runner, err := f.Runner(ctx, interval)
	if err != nil {
		return err
	}
	<-runner.Done()
	if err := runner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Round returns the number of completed or in-progress tick rounds.
func (f *Forest) Round() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.round
}

// Close drains and stops the forest-level event bus, after stopping the
// forest if necessary.
func (f *Forest) Close() {
	if f.State() == StateRunning {
		_ = f.Stop()
	}
	f.events.Close()
}

// layers partitions the nodes into a topological order by the dependency
// relation, each layer sorted by name. Callers must hold f.mu.
func (f *Forest) layers() ([][]*ForestNode, error) {
	for _, name := range f.order {
		for _, dep := range f.nodes[name].Dependencies {
			if _, ok := f.nodes[dep]; !ok {
				return nil, fmt.Errorf(`%w: %q required by %q`, ErrUnknownDependency, dep, name)
			}
		}
	}
	var (
		layers  [][]*ForestNode
		placed  = make(map[string]struct{}, len(f.nodes))
		pending = append([]string(nil), f.order...)
	)
	for len(pending) != 0 {
		var (
			layer []*ForestNode
			next  []string
		)
		for _, name := range pending {
			ready := true
			for _, dep := range f.nodes[name].Dependencies {
				if _, ok := placed[dep]; !ok {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, f.nodes[name])
			} else {
				next = append(next, name)
			}
		}
		if len(layer) == 0 {
			sort.Strings(next)
			return nil, fmt.Errorf(`%w: %s`, ErrCyclicDependency, strings.Join(next, `, `))
		}
		sort.Slice(layer, func(i, j int) bool { return layer[i].Name < layer[j].Name })
		for _, n := range layer {
			placed[n.Name] = struct{}{}
		}
		layers = append(layers, layer)
		pending = next
	}
	return layers, nil
}

// startForwarding re-emits every tree event on the forest bus.
func (f *Forest) startForwarding() {
	events := [...]string{
		EventTreeTickStart,
		EventTreeTickEnd,
		EventNodeStatusChanged,
		EventBlackboardChanged,
		EventError,
		EventLog,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range f.order {
		bus := f.nodes[name].Tree.Events()
		for _, event := range events {
			event := event
			sub := bus.On(event, func(payload any) { f.events.Emit(event, payload) })
			f.forwards = append(f.forwards, forwardedSubscription{bus: bus, sub: sub})
		}
	}
}
