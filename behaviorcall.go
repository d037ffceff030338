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
)

// DefaultCallDepth is the default bound on re-entrant behavior calls.
const DefaultCallDepth = 8

type (
	behaviorKey struct {
		tree     string
		behavior string
	}

	callDepthKey struct{}

	// BehaviorCall maps (tree name, behavior name) pairs to invocable
	// sub-trees: Call ticks the named sub-tree against the target tree's
	// collaborators, with the call arguments applied as a blackboard overlay
	// that is discarded when the call returns. Calls may recurse (including
	// mutually) up to the configured depth limit.
	BehaviorCall struct {
		middlewareCore
		mu        sync.RWMutex
		maxDepth  int
		behaviors map[behaviorKey]Node
		forest    *Forest
	}
)

// NewBehaviorCall constructs a BehaviorCall middleware; maxDepth <= 0 uses
// DefaultCallDepth.
func NewBehaviorCall(name string, maxDepth int) *BehaviorCall {
	if maxDepth <= 0 {
		maxDepth = DefaultCallDepth
	}
	return &BehaviorCall{
		middlewareCore: middlewareCore{name: name, kind: KindBehaviorCall},
		maxDepth:       maxDepth,
		behaviors:      make(map[behaviorKey]Node),
	}
}

// Start implements Middleware.Start
func (b *BehaviorCall) Start(_ context.Context, forest *Forest) error {
	b.mu.Lock()
	b.forest = forest
	b.mu.Unlock()
	return nil
}

// Stop implements Middleware.Stop
func (b *BehaviorCall) Stop() error {
	b.mu.Lock()
	b.forest = nil
	b.mu.Unlock()
	return nil
}

// RegisterBehavior installs a sub-tree invocable as (tree, behavior),
// replacing any previous registration. The sub-tree is validated like a
// tree root.
func (b *BehaviorCall) RegisterBehavior(tree, behavior string, root Node) error {
	if err := ValidateTree(root); err != nil {
		return err
	}
	b.mu.Lock()
	b.behaviors[behaviorKey{tree: tree, behavior: behavior}] = root
	b.mu.Unlock()
	return nil
}

// UnregisterBehavior removes a registration.
func (b *BehaviorCall) UnregisterBehavior(tree, behavior string) {
	b.mu.Lock()
	delete(b.behaviors, behaviorKey{tree: tree, behavior: behavior})
	b.mu.Unlock()
}

// Call ticks the named sub-tree once with args layered over the target
// tree's blackboard, returning the sub-tree's status. A missing
// registration fails with ErrNoService; recursion past the depth limit
// fails with ErrCallDepthExceeded.
func (b *BehaviorCall) Call(ctx context.Context, tree, behavior string, args map[string]any) (Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	depth, _ := ctx.Value(callDepthKey{}).(int)
	depth++
	if depth > b.maxDepth {
		return Failure, fmt.Errorf(`%w: %d calls deep invoking %s/%s`, ErrCallDepthExceeded, depth, tree, behavior)
	}
	ctx = context.WithValue(ctx, callDepthKey{}, depth)
	b.mu.RLock()
	root := b.behaviors[behaviorKey{tree: tree, behavior: behavior}]
	forest := b.forest
	b.mu.RUnlock()
	if root == nil {
		return Failure, fmt.Errorf(`%w: no behavior %s/%s`, ErrNoService, tree, behavior)
	}
	if forest == nil {
		return Failure, fmt.Errorf(`%w: middleware not started`, ErrNoService)
	}
	target, ok := forest.Node(tree)
	if !ok {
		return Failure, fmt.Errorf(`%w: no tree %q`, ErrNoService, tree)
	}
	overlay := NewOverlay(target.Tree.Blackboard(), args)
	scope := &Scope{
		Blackboard: overlay,
		Events:     target.Tree.Events(),
		Logger:     forest.logger,
		Tree:       tree,
	}
	return root.Tick(ctx, scope), nil
}
