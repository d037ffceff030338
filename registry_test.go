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

func TestRegistry_builtins(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, []string{
		`CheckBlackboard`, `Compare`, `Inverter`, `Log`, `Parallel`, `Repeater`,
		`Selector`, `Sequence`, `SetBlackboard`, `UntilFailure`, `UntilSuccess`, `Wait`,
	}, r.Types())
}

func TestRegistry_createUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(`Nope`, Config{`name`: `n`})
	require.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestRegistry_registerAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register(`AlwaysSucceed`, func(config Config) (Node, error) {
		return NewAction(config.Name(), func(context.Context, *Blackboard) (Status, error) {
			return Success, nil
		}), nil
	})
	n, err := r.Create(`AlwaysSucceed`, Config{`name`: `a`})
	require.NoError(t, err)
	require.Equal(t, `a`, n.Name())
	scope := newTestScope(t)
	require.Equal(t, Success, n.Tick(context.Background(), scope))
}

func TestRegistry_reRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(`Custom`, func(config Config) (Node, error) { return NewLog(config.Name(), `old`), nil })
	r.Register(`Custom`, func(config Config) (Node, error) { return NewLog(config.Name(), `new`), nil })
	n, err := r.Create(`Custom`, Config{`name`: `c`})
	require.NoError(t, err)
	require.Equal(t, `new`, n.(*Log).message)
}

func TestRegistry_createBuiltinConfig(t *testing.T) {
	r := NewRegistry()
	n, err := r.Create(`Wait`, Config{`name`: `w`, `duration`: `1.5`})
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, n.(*Wait).duration)

	n, err = r.Create(`Repeater`, Config{`name`: `r`, `count`: `infinite`})
	require.NoError(t, err)
	require.Equal(t, -1, n.(*Repeater).count)

	n, err = r.Create(`Parallel`, Config{`name`: `p`, `policy`: `require_one`})
	require.NoError(t, err)
	require.Equal(t, RequireOne, n.(*Parallel).Policy())

	_, err = r.Create(`Wait`, Config{`name`: `w`, `duration`: `soon`})
	require.Error(t, err)
}

func TestResetDefaultRegistry(t *testing.T) {
	DefaultRegistry.Register(`Transient`, func(config Config) (Node, error) {
		return NewLog(config.Name(), ``), nil
	})
	ResetDefaultRegistry()
	_, err := DefaultRegistry.Create(`Transient`, Config{`name`: `x`})
	require.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestConfig_coercion(t *testing.T) {
	c := Config{`i`: `3`, `b`: `true`, `d`: `250ms`, `s`: `0.5`}
	i, err := c.Int(`i`, 0)
	require.NoError(t, err)
	require.Equal(t, 3, i)
	i, err = c.Int(`missing`, 7)
	require.NoError(t, err)
	require.Equal(t, 7, i)
	b, err := c.Bool(`b`, false)
	require.NoError(t, err)
	require.True(t, b)
	d, err := c.Duration(`d`, 0)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, d)
	d, err = c.Duration(`s`, 0)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, d)
	_, err = c.Int(`b`, 0)
	require.Error(t, err)
}
