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

// Package behaviorforest provides an asynchronous behavior tree execution
// engine with multi-tree forest coordination, without fluff.
package behaviorforest

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

type (
	// Node is a single node in a behavior tree. Implementations are stateful:
	// the resume state a node needs across ticks (running child index, repeat
	// counter, wait deadline) lives on the node itself, so Reset is a plain
	// field wipe and the engine can inspect RUNNING state between ticks.
	//
	// Tick must return one of Running, Success, or Failure; internal failures
	// surface as Failure with an EventError emitted via the scope. A node that
	// returned Running must be re-entered by the same traversal path on the
	// next tick, which composites enforce via their resume index.
	Node interface {
		// Name returns the node's human-readable label, which need not be unique.
		Name() string
		// Kind returns the node type discriminator, e.g. `Sequence` or `Wait`.
		Kind() string
		// Parent returns the parent node, nil for the root of a tree.
		Parent() Node
		// Children returns the ordered child nodes, nil for leaves.
		Children() []Node
		// Status returns the outcome of the last completed tick, initially Failure.
		Status() Status
		// Config returns the construction parameters, frozen after construction.
		Config() Config
		// Tick advances the node and returns its outcome.
		Tick(ctx context.Context, scope *Scope) Status
		// Reset wipes status and all resume state, recursively.
		Reset()

		setParent(parent Node)
	}

	// Scope carries the ambient collaborators a node may touch during a tick:
	// the owning tree's blackboard, event bus and logger. Scopes are built by
	// the tree per tick and must not be retained by nodes.
	Scope struct {
		Blackboard *Blackboard
		Events     *EventBus
		Logger     logrus.FieldLogger
		Tree       string
	}

	// Config holds kind-specific node parameters as text, matching the XML
	// attribute representation; factories coerce values as needed.
	Config map[string]string

	// node is the embeddable base carrying the identity and status
	// bookkeeping shared by every variant.
	node struct {
		name   string
		kind   string
		config Config
		parent Node
		status Status
	}
)

// Emit publishes an event on the scope's bus, a no-op for a nil bus.
func (s *Scope) Emit(event string, payload any) {
	if s != nil && s.Events != nil {
		s.Events.Emit(event, payload)
	}
}

// Log returns the scope's logger, defaulting to logrus.StandardLogger().
func (s *Scope) Log() logrus.FieldLogger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// Fail reports an internal node failure: it emits an EventError naming the
// node and returns Failure for the caller to conclude with.
func (s *Scope) Fail(n Node, kind string, err error) Status {
	detail := `unknown error`
	if err != nil {
		detail = err.Error()
	}
	s.Emit(EventError, ErrorEvent{Source: nodePath(n), Kind: kind, Detail: detail})
	s.Log().WithField(`node`, nodePath(n)).Warnf(`behaviorforest: %s: %s`, kind, detail)
	return Failure
}

func newNode(kind string, config Config) node {
	if config == nil {
		config = Config{}
	}
	return node{name: config.Name(), kind: kind, config: config, status: Failure}
}

func (n *node) Name() string     { return n.name }
func (n *node) Kind() string     { return n.kind }
func (n *node) Parent() Node     { return n.parent }
func (n *node) Children() []Node { return nil }
func (n *node) Status() Status   { return n.status }
func (n *node) Config() Config   { return n.config }

func (n *node) Reset() { n.status = Failure }

func (n *node) setParent(parent Node) { n.parent = parent }

// conclude records the tick outcome, emitting EventNodeStatusChanged on
// transitions, and is the single path by which every Tick returns.
func (n *node) conclude(scope *Scope, status Status) Status {
	status = status.Status()
	if old := n.status; old != status {
		n.status = status
		scope.Emit(EventNodeStatusChanged, StatusChangedEvent{Path: n.path(), Old: old, New: status})
	}
	return status
}

func (n *node) path() string {
	names := []string{n.name}
	for p := n.parent; p != nil; p = p.Parent() {
		names = append(names, p.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, `/`)
}

// nodePath returns the slash-joined path of names from the root down to n.
func nodePath(n Node) string {
	if n == nil {
		return `<nil>`
	}
	names := []string{n.Name()}
	for p := n.Parent(); p != nil; p = p.Parent() {
		names = append(names, p.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, `/`)
}

// Name returns the `name` config value.
func (c Config) Name() string { return c[`name`] }

// Get returns the value for key, or def if absent.
func (c Config) Get(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}
