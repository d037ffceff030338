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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequence_empty(t *testing.T) {
	scope := newTestScope(t)
	require.Equal(t, Success, NewSequence(`s`).Tick(context.Background(), scope))
}

func TestSelector_empty(t *testing.T) {
	scope := newTestScope(t)
	require.Equal(t, Failure, NewSelector(`s`).Tick(context.Background(), scope))
}

func TestSequence_runningResumes(t *testing.T) {
	scope := newTestScope(t)
	first, firstCount := scriptedAction(`first`, Success)
	second, secondCount := scriptedAction(`second`, Running, Success)
	third, thirdCount := scriptedAction(`third`, Success)
	s := NewSequence(`s`, first, second, third)

	require.Equal(t, Running, s.Tick(context.Background(), scope))
	require.Equal(t, 1, s.RunningChild())
	require.Equal(t, 1, *firstCount)
	require.Equal(t, 1, *secondCount)
	require.Equal(t, 0, *thirdCount)

	require.Equal(t, Success, s.Tick(context.Background(), scope))
	require.Equal(t, 1, *firstCount)
	require.Equal(t, 2, *secondCount)
	require.Equal(t, 1, *thirdCount)
	require.Equal(t, 0, s.RunningChild())
}

func TestSequence_failureResetsIndex(t *testing.T) {
	scope := newTestScope(t)
	first, firstCount := scriptedAction(`first`, Success)
	second, _ := scriptedAction(`second`, Failure)
	s := NewSequence(`s`, first, second)
	require.Equal(t, Failure, s.Tick(context.Background(), scope))
	require.Equal(t, 0, s.RunningChild())
	require.Equal(t, Failure, s.Tick(context.Background(), scope))
	// the failure restarted the sequence from the first child
	require.Equal(t, 2, *firstCount)
}

func TestSelector_fallback(t *testing.T) {
	scope := newTestScope(t)
	var evaluations int
	cond := NewCondition(`cond`, func(context.Context, *Blackboard) (bool, error) {
		evaluations++
		return false, nil
	})
	action, actionCount := scriptedAction(`action`, Success)
	s := NewSelector(`s`, cond, action)
	require.Equal(t, Success, s.Tick(context.Background(), scope))
	require.Equal(t, 1, evaluations)
	require.Equal(t, 1, *actionCount)
}

func TestSelector_runningResumes(t *testing.T) {
	scope := newTestScope(t)
	first, firstCount := scriptedAction(`first`, Failure)
	second, _ := scriptedAction(`second`, Running, Success)
	s := NewSelector(`s`, first, second)
	require.Equal(t, Running, s.Tick(context.Background(), scope))
	require.Equal(t, 1, s.RunningChild())
	require.Equal(t, Success, s.Tick(context.Background(), scope))
	// the resumed tick did not revisit the failed child
	require.Equal(t, 1, *firstCount)
}

func TestComposite_reset(t *testing.T) {
	scope := newTestScope(t)
	first, _ := scriptedAction(`first`, Success)
	second, _ := scriptedAction(`second`, Running)
	s := NewSequence(`s`, first, second)
	require.Equal(t, Running, s.Tick(context.Background(), scope))
	require.Equal(t, 1, s.RunningChild())
	s.Reset()
	require.Equal(t, 0, s.RunningChild())
	require.Equal(t, Failure, s.Status())
	require.Equal(t, Failure, first.Status())
}

func TestComposite_parentWiring(t *testing.T) {
	first, _ := scriptedAction(`first`, Success)
	second, _ := scriptedAction(`second`, Success)
	s := NewSequence(`s`, first, second)
	require.Nil(t, s.Parent())
	for _, child := range s.Children() {
		require.Equal(t, Node(s), child.Parent())
	}
	require.Len(t, s.Children(), 2)
}
