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

func TestNewRunner_panics(t *testing.T) {
	tree := succeedTree(t, `t`)
	require.Panics(t, func() { NewRunner(nil, time.Millisecond, tree) })
	require.Panics(t, func() { NewRunner(context.Background(), 0, tree) })
	require.Panics(t, func() { NewRunner(context.Background(), time.Millisecond, nil) })
}

func TestRunner_ticksUntilStopped(t *testing.T) {
	tree := succeedTree(t, `t`)
	runner := NewRunner(context.Background(), 5*time.Millisecond, tree)
	require.Eventually(t, func() bool { return tree.Ticks() >= 3 }, time.Second, time.Millisecond)
	runner.Stop()
	select {
	case <-runner.Done():
	case <-time.After(time.Second):
		t.Fatal(`runner did not stop`)
	}
	require.NoError(t, runner.Err())
}

func TestRunner_contextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(ctx, 5*time.Millisecond, succeedTree(t, `t`))
	cancel()
	select {
	case <-runner.Done():
	case <-time.After(time.Second):
		t.Fatal(`runner did not stop`)
	}
	require.ErrorIs(t, runner.Err(), context.Canceled)
}

func TestForest_runner(t *testing.T) {
	f := NewForest(`f`)
	defer f.Close()
	require.NoError(t, f.AddNode(&ForestNode{Name: `a`, Tree: succeedTree(t, `a`)}))
	runner, err := f.Runner(context.Background(), 5*time.Millisecond)
	require.NoError(t, err)
	// the runner started the idle forest
	require.Equal(t, StateRunning, f.State())
	require.Eventually(t, func() bool { return f.Round() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, f.Stop())
	select {
	case <-runner.Done():
	case <-time.After(time.Second):
		t.Fatal(`runner did not stop`)
	}
	require.ErrorIs(t, runner.Err(), context.Canceled)
}

func TestNewRunnerStopOnFailure(t *testing.T) {
	tree := newForestTree(t, `t`, func(context.Context, *Blackboard) (Status, error) {
		return Failure, nil
	})
	runner := NewRunnerStopOnFailure(context.Background(), time.Millisecond, tree)
	select {
	case <-runner.Done():
	case <-time.After(time.Second):
		t.Fatal(`runner did not stop`)
	}
	require.NoError(t, runner.Err())
	require.Equal(t, uint64(1), tree.Ticks())
}
