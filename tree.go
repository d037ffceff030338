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
	"io"
	"sync"
	"sync/atomic"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

type (
	// Tree owns a root node together with the blackboard and event bus its
	// nodes share, and orchestrates ticks: at most one tick runs at a time
	// per tree, with concurrent callers queueing on the current one.
	Tree struct {
		name       string
		mu         sync.Mutex
		root       Node
		blackboard *Blackboard
		events     *EventBus
		logger     logrus.FieldLogger
		tracer     opentracing.Tracer
		registry   *Registry
		ticks      uint64
		last       uint32
	}

	// TreeOption configures a Tree at construction.
	TreeOption func(t *Tree)
)

// WithLogger configures the tree's logger, defaulting to
// logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) TreeOption {
	return func(t *Tree) { t.logger = logger }
}

// WithTracer configures an opentracing tracer wrapping every tick in a root
// span; by default ticks are not traced.
func WithTracer(tracer opentracing.Tracer) TreeOption {
	return func(t *Tree) { t.tracer = tracer }
}

// WithRegistry configures the registry consulted by LoadFromXML, defaulting
// to DefaultRegistry.
func WithRegistry(registry *Registry) TreeOption {
	return func(t *Tree) { t.registry = registry }
}

// NewTree constructs an empty tree: load a root via LoadFromNode or
// LoadFromXML before ticking.
func NewTree(name string, opts ...TreeOption) *Tree {
	t := &Tree{name: name, last: uint32(Failure)}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logrus.StandardLogger()
	}
	if t.registry == nil {
		t.registry = DefaultRegistry
	}
	t.events = NewEventBus(t.logger)
	t.blackboard = NewBlackboard(t.events)
	return t
}

// NewTreeWithRoot is sugar for NewTree followed by LoadFromNode.
func NewTreeWithRoot(name string, root Node, opts ...TreeOption) (*Tree, error) {
	t := NewTree(name, opts...)
	if err := t.LoadFromNode(root); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// LoadFromNode takes ownership of an already-built subtree as the root,
// after validating it (non-nil, named nodes, decorator arity, no cycles or
// shared subtrees). Failures match ErrInvalidTree.
func (t *Tree) LoadFromNode(root Node) error {
	if err := ValidateTree(root); err != nil {
		return err
	}
	t.mu.Lock()
	t.root = root
	t.mu.Unlock()
	return nil
}

// LoadFromXML builds the root from an XML document via the tree's registry,
// with the same validation as LoadFromNode.
func (t *Tree) LoadFromXML(r io.Reader) error {
	root, _, err := parseTreeDocument(r, t.registry)
	if err != nil {
		return err
	}
	return t.LoadFromNode(root)
}

// Tick advances the root once and returns its status. Ticks are serialized
// per tree; the tick counter increments per call; EventTreeTickStart and
// EventTreeTickEnd frame the traversal. A tree with no root fails, emitting
// an EventError.
func (t *Tree) Tick(ctx context.Context) Status {
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	round := atomic.AddUint64(&t.ticks, 1)
	scope := t.scope()
	scope.Emit(EventTreeTickStart, TickEvent{Tree: t.name, Round: round})
	var span opentracing.Span
	if t.tracer != nil {
		span, ctx = startTickSpan(ctx, t.tracer, t.name)
	}
	status := Failure
	if t.root == nil {
		scope.Fail(nil, `invalid_tree`, invalidTree(`tree %q has no root`, t.name))
	} else {
		status = t.root.Tick(ctx, scope)
	}
	if span != nil {
		finishTickSpan(span, round, status)
	}
	atomic.StoreUint32(&t.last, uint32(status))
	scope.Emit(EventTreeTickEnd, TickEvent{Tree: t.name, Round: round, Status: status})
	return status
}

// Reset wipes the running state of every node; the blackboard is preserved
// unless cleared explicitly.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root != nil {
		t.root.Reset()
	}
}

// Name returns the tree's name.
func (t *Tree) Name() string { return t.name }

// Root returns the root node, nil before loading.
func (t *Tree) Root() Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// Blackboard returns the tree-owned blackboard.
func (t *Tree) Blackboard() *Blackboard { return t.blackboard }

// Events returns the tree-owned event bus.
func (t *Tree) Events() *EventBus { return t.events }

// Ticks returns the monotonic tick counter.
func (t *Tree) Ticks() uint64 { return atomic.LoadUint64(&t.ticks) }

// LastStatus returns the root status of the most recent tick, initially
// Failure.
func (t *Tree) LastStatus() Status { return Status(atomic.LoadUint32(&t.last)) }

// Close drains and stops the tree's event bus. The tree must not be ticked
// after Close.
func (t *Tree) Close() { t.events.Close() }

// String renders the tree via DefaultPrinter.
func (t *Tree) String() string { return Sprint(t.Root()) }

func (t *Tree) scope() *Scope {
	return &Scope{Blackboard: t.blackboard, Events: t.events, Logger: t.logger, Tree: t.name}
}

// ValidateTree checks the structural invariants of a subtree: a non-nil
// named root, decorators with exactly one child, parent back-references
// consistent with child order, and no node reachable twice (which covers
// both cycles and shared subtrees). Failures match ErrInvalidTree.
func ValidateTree(root Node) error {
	if root == nil {
		return invalidTree(`nil root`)
	}
	if root.Parent() != nil {
		return invalidTree(`root %q has a parent`, root.Name())
	}
	seen := make(map[Node]struct{})
	var walk func(n Node) error
	walk = func(n Node) error {
		if _, ok := seen[n]; ok {
			return invalidTree(`node %q reachable more than once`, n.Name())
		}
		seen[n] = struct{}{}
		if n.Name() == `` {
			return invalidTree(`unnamed %s node`, n.Kind())
		}
		children := n.Children()
		if _, ok := n.(interface{ decoratorArity() }); ok && len(children) != 1 {
			return invalidTree(`decorator %q has %d children`, n.Name(), len(children))
		}
		for _, child := range children {
			if child == nil {
				return invalidTree(`nil child of %q`, n.Name())
			}
			if child.Parent() != n {
				return invalidTree(`node %q has inconsistent parent`, child.Name())
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
