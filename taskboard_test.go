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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTaskBoardForest(t *testing.T, board *TaskBoard) *Forest {
	t.Helper()
	f := NewForest(`f`)
	t.Cleanup(f.Close)
	require.NoError(t, f.AddMiddleware(board))
	require.NoError(t, f.AddNode(&ForestNode{Name: `mover`, Tree: succeedTree(t, `mover`), Capabilities: []string{`move`}}))
	require.NoError(t, f.AddNode(&ForestNode{Name: `grasper`, Tree: succeedTree(t, `grasper`), Capabilities: []string{`move`, `grasp`}}))
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() { _ = f.Stop() })
	return f
}

func TestTaskBoard_capabilityRouting(t *testing.T) {
	board := NewTaskBoard(`board`, 0)
	f := newTaskBoardForest(t, board)

	var (
		mu      sync.Mutex
		claimed = map[string][]string{}
	)
	accept := func(node string) TaskHandler {
		return func(task *Task) bool {
			mu.Lock()
			claimed[node] = append(claimed[node], task.Description)
			mu.Unlock()
			return true
		}
	}
	board.OnOffer(`mover`, accept(`mover`))
	board.OnOffer(`grasper`, accept(`grasper`))

	events := collectEvents(f.Events(), EventTaskClaimed)
	moveID := board.Submit(`move it`, nil, []string{`move`}, 0)
	graspID := board.Submit(`grasp it`, nil, []string{`grasp`}, 0)
	_, err := f.Tick(context.Background())
	require.NoError(t, err)

	mu.Lock()
	// the first capable node in registration order claims
	require.Equal(t, []string{`move it`}, claimed[`mover`])
	require.Equal(t, []string{`grasp it`}, claimed[`grasper`])
	mu.Unlock()
	require.Zero(t, board.Pending())

	payloads := events()
	require.Len(t, payloads, 2)
	require.Equal(t, TaskClaimedEvent{TaskID: moveID, Tree: `mover`}, payloads[0])
	require.Equal(t, TaskClaimedEvent{TaskID: graspID, Tree: `grasper`}, payloads[1])
}

func TestTaskBoard_unclaimedRemains(t *testing.T) {
	board := NewTaskBoard(`board`, 0)
	f := newTaskBoardForest(t, board)
	board.Submit(`fly`, nil, []string{`fly`}, 0)
	_, err := f.Tick(context.Background())
	require.NoError(t, err)
	// no node carries the capability, so the task stays pending
	require.Equal(t, 1, board.Pending())
}

func TestTaskBoard_declinedOfferRemains(t *testing.T) {
	board := NewTaskBoard(`board`, 0)
	f := newTaskBoardForest(t, board)
	var offers int
	board.OnOffer(`mover`, func(*Task) bool {
		offers++
		return false
	})
	board.Submit(`move it`, nil, []string{`move`}, 0)
	_, err := f.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, offers)
	require.Equal(t, 1, board.Pending())
}

func TestTaskBoard_ttlExpiry(t *testing.T) {
	board := NewTaskBoard(`board`, 0)
	f := newTaskBoardForest(t, board)
	events := collectEvents(f.Events(), EventTaskExpired)
	id := board.Submit(`stale`, nil, []string{`fly`}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, err := f.Tick(context.Background())
	require.NoError(t, err)
	require.Zero(t, board.Pending())
	payloads := events()
	require.Len(t, payloads, 1)
	require.Equal(t, TaskExpiredEvent{TaskID: id}, payloads[0])
}

func TestTaskBoard_fifo(t *testing.T) {
	board := NewTaskBoard(`board`, 0)
	f := newTaskBoardForest(t, board)
	var order []string
	board.OnOffer(`mover`, func(task *Task) bool {
		order = append(order, task.Description)
		return true
	})
	board.Submit(`one`, nil, nil, 0)
	board.Submit(`two`, nil, nil, 0)
	board.Submit(`three`, nil, nil, 0)
	_, err := f.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{`one`, `two`, `three`}, order)
}
