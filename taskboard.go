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
	"time"

	"github.com/google/uuid"
)

type (
	// Task is a unit of work posted to the task board.
	Task struct {
		// ID is the board-assigned task identifier.
		ID string
		// Description is a human-readable label.
		Description string
		// Payload is the opaque task data.
		Payload any
		// Capabilities a forest node must all carry to be offered the task.
		Capabilities []string
		// Deadline after which the task expires, zero for no TTL.
		Deadline time.Time
	}

	// TaskHandler decides whether a forest node claims an offered task.
	TaskHandler func(task *Task) bool

	// TaskBoard is a FIFO of pending tasks tagged with required capabilities.
	// Each tick round, pending tasks are offered in submission order to the
	// forest nodes whose capability set is a superset of the task's, in
	// registration order; the first accepting handler claims. Unclaimed
	// tasks remain pending until the optional TTL lapses, which emits
	// EventTaskExpired on the forest bus.
	TaskBoard struct {
		middlewareCore
		mu         sync.Mutex
		defaultTTL time.Duration
		pending    []*Task
		handlers   map[string]TaskHandler
		forest     *Forest
	}
)

// NewTaskBoard constructs a TaskBoard middleware; defaultTTL <= 0 means
// tasks never expire unless submitted with an explicit TTL.
func NewTaskBoard(name string, defaultTTL time.Duration) *TaskBoard {
	return &TaskBoard{
		middlewareCore: middlewareCore{name: name, kind: KindTaskBoard},
		defaultTTL:     defaultTTL,
		handlers:       make(map[string]TaskHandler),
	}
}

// Start implements Middleware.Start
func (b *TaskBoard) Start(_ context.Context, forest *Forest) error {
	b.mu.Lock()
	b.forest = forest
	b.mu.Unlock()
	return nil
}

// Stop implements Middleware.Stop, dropping pending tasks.
func (b *TaskBoard) Stop() error {
	b.mu.Lock()
	b.pending = nil
	b.forest = nil
	b.mu.Unlock()
	return nil
}

// OnOffer registers the claim handler for the named forest node; tasks are
// only offered to nodes with a handler.
func (b *TaskBoard) OnOffer(node string, handler TaskHandler) {
	b.mu.Lock()
	if handler == nil {
		delete(b.handlers, node)
	} else {
		b.handlers[node] = handler
	}
	b.mu.Unlock()
}

// Submit appends a task to the board and returns its id; ttl <= 0 uses the
// board default.
func (b *TaskBoard) Submit(description string, payload any, capabilities []string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	task := &Task{
		ID:           uuid.NewString(),
		Description:  description,
		Payload:      payload,
		Capabilities: append([]string(nil), capabilities...),
	}
	if ttl > 0 {
		task.Deadline = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.pending = append(b.pending, task)
	b.mu.Unlock()
	return task.ID
}

// Pending returns the number of unclaimed tasks.
func (b *TaskBoard) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// BeforeTick implements Middleware.BeforeTick: expired tasks are dropped,
// then each remaining task is offered to the capable nodes in registration
// order.
func (b *TaskBoard) BeforeTick(uint64) {
	b.mu.Lock()
	forest := b.forest
	tasks := b.pending
	b.pending = nil
	b.mu.Unlock()
	if forest == nil {
		return
	}
	now := time.Now()
	nodes := forest.Nodes()
	var remaining []*Task
	for _, task := range tasks {
		if !task.Deadline.IsZero() && now.After(task.Deadline) {
			forest.Events().Emit(EventTaskExpired, TaskExpiredEvent{TaskID: task.ID})
			continue
		}
		if claimant := b.offer(task, nodes); claimant != `` {
			forest.Events().Emit(EventTaskClaimed, TaskClaimedEvent{TaskID: task.ID, Tree: claimant})
			continue
		}
		remaining = append(remaining, task)
	}
	b.mu.Lock()
	// tasks submitted during the offer loop keep their order behind the survivors
	b.pending = append(remaining, b.pending...)
	b.mu.Unlock()
}

func (b *TaskBoard) offer(task *Task, nodes []*ForestNode) string {
	for _, n := range nodes {
		if !n.HasCapabilities(task.Capabilities) {
			continue
		}
		b.mu.Lock()
		handler := b.handlers[n.Name]
		b.mu.Unlock()
		if handler != nil && handler(task) {
			return n.Name
		}
	}
	return ``
}
