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
	"time"

	"github.com/stretchr/testify/require"
)

func managedForest(t *testing.T, name string) *Forest {
	t.Helper()
	f := NewForest(name)
	t.Cleanup(f.Close)
	require.NoError(t, f.AddNode(&ForestNode{Name: name + `-tree`, Tree: succeedTree(t, name+`-tree`)}))
	return f
}

func TestForestManager_lifecycle(t *testing.T) {
	m := NewForestManager()
	base := managedForest(t, `base`)
	derived := managedForest(t, `derived`)
	require.NoError(t, m.Add(`base`, base))
	require.NoError(t, m.Add(`derived`, derived, `base`))

	require.NoError(t, m.Start(context.Background(), 5*time.Millisecond))
	require.Equal(t, StateRunning, base.State())
	require.Equal(t, StateRunning, derived.State())
	require.Eventually(t, func() bool {
		return base.Round() >= 2 && derived.Round() >= 2
	}, time.Second, time.Millisecond)

	m.Stop()
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal(`manager did not stop`)
	}
	require.NoError(t, m.Err())
	require.Equal(t, StateStopped, base.State())
	require.Equal(t, StateStopped, derived.State())
}

func TestForestManager_addAfterStart(t *testing.T) {
	m := NewForestManager()
	require.NoError(t, m.Add(`a`, managedForest(t, `a`)))
	require.NoError(t, m.Start(context.Background(), 10*time.Millisecond))
	defer func() {
		m.Stop()
		<-m.Done()
	}()
	require.ErrorIs(t, m.Add(`b`, managedForest(t, `b`)), ErrManagerStarted)
}

func TestForestManager_unknownDependency(t *testing.T) {
	m := NewForestManager()
	require.NoError(t, m.Add(`a`, managedForest(t, `a`), `ghost`))
	require.ErrorIs(t, m.Start(context.Background(), 10*time.Millisecond), ErrUnknownDependency)
}

func TestForestManager_cyclicDependency(t *testing.T) {
	m := NewForestManager()
	require.NoError(t, m.Add(`a`, managedForest(t, `a`), `b`))
	require.NoError(t, m.Add(`b`, managedForest(t, `b`), `a`))
	require.ErrorIs(t, m.Start(context.Background(), 10*time.Millisecond), ErrCyclicDependency)
}

func TestForestManager_duplicateName(t *testing.T) {
	m := NewForestManager()
	require.NoError(t, m.Add(`a`, managedForest(t, `a`)))
	require.Error(t, m.Add(`a`, managedForest(t, `a2`)))
}
