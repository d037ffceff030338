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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAction_result(t *testing.T) {
	scope := newTestScope(t)
	a := NewAction(`a`, func(context.Context, *Blackboard) (Status, error) { return Success, nil })
	require.Equal(t, Success, a.Tick(context.Background(), scope))
	require.Equal(t, Success, a.Status())
}

func TestAction_errorBecomesFailure(t *testing.T) {
	scope := newTestScope(t)
	got := collectEvents(scope.Events, EventError)
	a := NewAction(`broken`, func(context.Context, *Blackboard) (Status, error) {
		return Success, errors.New(`expected failure`)
	})
	require.Equal(t, Failure, a.Tick(context.Background(), scope))
	payloads := got()
	require.Len(t, payloads, 1)
	ev, ok := payloads[0].(ErrorEvent)
	require.True(t, ok)
	require.Equal(t, `broken`, ev.Source)
	require.Contains(t, ev.Detail, `expected failure`)
}

func TestAction_nilExecute(t *testing.T) {
	scope := newTestScope(t)
	a := NewAction(`a`, nil)
	require.Equal(t, Failure, a.Tick(context.Background(), scope))
}

func TestCondition_neverRunning(t *testing.T) {
	scope := newTestScope(t)
	c := NewCondition(`c`, func(_ context.Context, b *Blackboard) (bool, error) {
		return b.Has(`flag`), nil
	})
	require.Equal(t, Failure, c.Tick(context.Background(), scope))
	scope.Blackboard.Set(`flag`, true)
	require.Equal(t, Success, c.Tick(context.Background(), scope))
}

func TestCondition_error(t *testing.T) {
	scope := newTestScope(t)
	c := NewCondition(`c`, func(context.Context, *Blackboard) (bool, error) {
		return true, errors.New(`nope`)
	})
	require.Equal(t, Failure, c.Tick(context.Background(), scope))
}

func TestAsyncAction_lifecycle(t *testing.T) {
	scope := newTestScope(t)
	release := make(chan struct{})
	a := NewAsyncAction(`slow`, func(context.Context, *Blackboard) (Status, error) {
		<-release
		return Success, nil
	})
	require.Equal(t, Running, a.Tick(context.Background(), scope))
	require.Equal(t, Running, a.Tick(context.Background(), scope))
	close(release)
	require.Eventually(t, func() bool {
		return a.Tick(context.Background(), scope) == Success
	}, time.Second, time.Millisecond)
}

func TestAsyncAction_reset(t *testing.T) {
	scope := newTestScope(t)
	a := NewAsyncAction(`slow`, func(context.Context, *Blackboard) (Status, error) {
		return Success, nil
	})
	require.Equal(t, Running, a.Tick(context.Background(), scope))
	a.Reset()
	require.Equal(t, Failure, a.Status())
	require.Equal(t, Running, a.Tick(context.Background(), scope))
}
