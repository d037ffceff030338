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

	"github.com/stretchr/testify/require"
)

func TestTree_loadValidation(t *testing.T) {
	t.Run(`nil root`, func(t *testing.T) {
		tree := NewTree(`t`)
		defer tree.Close()
		require.ErrorIs(t, tree.LoadFromNode(nil), ErrInvalidTree)
	})
	t.Run(`unnamed node`, func(t *testing.T) {
		tree := NewTree(`t`)
		defer tree.Close()
		child, _ := scriptedAction(``, Success)
		require.ErrorIs(t, tree.LoadFromNode(NewSequence(`s`, child)), ErrInvalidTree)
	})
	t.Run(`decorator arity`, func(t *testing.T) {
		tree := NewTree(`t`)
		defer tree.Close()
		require.ErrorIs(t, tree.LoadFromNode(NewInverter(`inv`, nil)), ErrInvalidTree)
	})
	t.Run(`shared subtree`, func(t *testing.T) {
		tree := NewTree(`t`)
		defer tree.Close()
		shared, _ := scriptedAction(`shared`, Success)
		root := NewSequence(`s`, shared, shared)
		require.ErrorIs(t, tree.LoadFromNode(root), ErrInvalidTree)
	})
	t.Run(`root with parent`, func(t *testing.T) {
		tree := NewTree(`t`)
		defer tree.Close()
		child, _ := scriptedAction(`child`, Success)
		NewSequence(`owner`, child)
		require.ErrorIs(t, tree.LoadFromNode(child), ErrInvalidTree)
	})
}

func TestTree_tick(t *testing.T) {
	child, count := scriptedAction(`child`, Running, Success)
	tree, err := NewTreeWithRoot(`t`, NewSequence(`root`, child))
	require.NoError(t, err)
	defer tree.Close()

	require.Equal(t, Running, tree.Tick(context.Background()))
	require.Equal(t, Success, tree.Tick(context.Background()))
	require.Equal(t, uint64(2), tree.Ticks())
	require.Equal(t, Success, tree.LastStatus())
	require.Equal(t, 2, *count)
}

func TestTree_tickWithoutRoot(t *testing.T) {
	tree := NewTree(`t`)
	defer tree.Close()
	got := collectEvents(tree.Events(), EventError)
	require.Equal(t, Failure, tree.Tick(context.Background()))
	require.Len(t, got(), 1)
}

func TestTree_tickEvents(t *testing.T) {
	child, _ := scriptedAction(`child`, Success)
	tree, err := NewTreeWithRoot(`t`, NewSequence(`root`, child))
	require.NoError(t, err)
	defer tree.Close()
	starts := collectEvents(tree.Events(), EventTreeTickStart)
	ends := collectEvents(tree.Events(), EventTreeTickEnd)
	changes := collectEvents(tree.Events(), EventNodeStatusChanged)

	tree.Tick(context.Background())

	require.Len(t, starts(), 1)
	endPayloads := ends()
	require.Len(t, endPayloads, 1)
	end := endPayloads[0].(TickEvent)
	require.Equal(t, `t`, end.Tree)
	require.Equal(t, uint64(1), end.Round)
	require.Equal(t, Success, end.Status)
	// both nodes transitioned failure -> success
	require.Len(t, changes(), 2)
}

func TestTree_statelessRepeatTick(t *testing.T) {
	tree, err := NewTreeWithRoot(`t`, NewSequence(`root`,
		NewCheckBlackboard(`c`, `k`, `v`),
	))
	require.NoError(t, err)
	defer tree.Close()
	tree.Blackboard().Set(`k`, `v`)
	require.Equal(t, Success, tree.Tick(context.Background()))
	require.Equal(t, Success, tree.Tick(context.Background()))
}

func TestTree_reset(t *testing.T) {
	child, _ := scriptedAction(`child`, Running)
	seq := NewSequence(`root`, child)
	tree, err := NewTreeWithRoot(`t`, seq)
	require.NoError(t, err)
	defer tree.Close()
	tree.Blackboard().Set(`k`, `v`)
	require.Equal(t, Running, tree.Tick(context.Background()))
	tree.Reset()
	require.Equal(t, 0, seq.RunningChild())
	require.Equal(t, Failure, seq.Status())
	// the blackboard is preserved across resets
	require.True(t, tree.Blackboard().Has(`k`))
}

func TestTree_serializedTicks(t *testing.T) {
	var (
		mu     sync.Mutex
		active int
		peak   int
	)
	child := NewAction(`child`, func(context.Context, *Blackboard) (Status, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		mu.Lock()
		active--
		mu.Unlock()
		return Success, nil
	})
	tree, err := NewTreeWithRoot(`t`, child)
	require.NoError(t, err)
	defer tree.Close()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree.Tick(context.Background())
		}()
	}
	wg.Wait()
	require.Equal(t, 1, peak)
	require.Equal(t, uint64(8), tree.Ticks())
}

func TestValidateTree_cycleViaAccept(t *testing.T) {
	a := NewSequence(`a`)
	b := NewSequence(`b`)
	require.NoError(t, a.accept(b))
	require.NoError(t, b.accept(a))
	require.ErrorIs(t, ValidateTree(a), ErrInvalidTree)
}
