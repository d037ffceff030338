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
	"strconv"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type (
	// Log emits a LogEvent and logs the configured message, then succeeds.
	Log struct {
		node
		message string
	}

	// Wait reports Running until the configured duration has elapsed, then
	// succeeds. The deadline is stored on the node and set lazily by the
	// first tick of each cycle; a zero duration succeeds immediately.
	Wait struct {
		node
		duration time.Duration
		deadline time.Time
	}

	// SetBlackboard writes the configured key/value pair and succeeds.
	SetBlackboard struct {
		node
		key   string
		value string
	}

	// CheckBlackboard succeeds iff the configured key holds a value whose
	// textual representation equals the expected value.
	CheckBlackboard struct {
		node
		key      string
		expected string
	}

	// Compare evaluates `left op right` where either operand names a
	// blackboard key (its stored value is used) or is a literal. Supported
	// ops: == != < <= > >=.
	Compare struct {
		node
		left    string
		right   string
		op      string
		program *vm.Program
	}
)

// NewLog constructs a Log leaf.
func NewLog(name, message string) *Log {
	return &Log{node: newNode(`Log`, Config{`name`: name, `message`: message}), message: message}
}

// Tick implements Node.Tick
func (l *Log) Tick(_ context.Context, scope *Scope) Status {
	scope.Log().WithField(`node`, nodePath(l)).Info(l.message)
	scope.Emit(EventLog, LogEvent{Tree: scope.Tree, Node: l.name, Message: l.message})
	return l.conclude(scope, Success)
}

// NewWait constructs a Wait leaf.
func NewWait(name string, duration time.Duration) *Wait {
	return &Wait{node: newNode(`Wait`, Config{`name`: name, `duration`: formatSeconds(duration)}), duration: duration}
}

// Tick implements Node.Tick, re-checking the deadline on each re-entry.
func (w *Wait) Tick(ctx context.Context, scope *Scope) Status {
	if w.deadline.IsZero() {
		if w.duration <= 0 {
			return w.conclude(scope, Success)
		}
		w.deadline = time.Now().Add(w.duration)
		return w.conclude(scope, Running)
	}
	if ctx.Err() == nil && !time.Now().Before(w.deadline) {
		w.deadline = time.Time{}
		return w.conclude(scope, Success)
	}
	return w.conclude(scope, Running)
}

// Reset implements Node.Reset
func (w *Wait) Reset() {
	w.deadline = time.Time{}
	w.node.Reset()
}

// NewSetBlackboard constructs a SetBlackboard leaf.
func NewSetBlackboard(name, key, value string) *SetBlackboard {
	return &SetBlackboard{node: newNode(`SetBlackboard`, Config{`name`: name, `key`: key, `value`: value}), key: key, value: value}
}

// Tick implements Node.Tick
func (s *SetBlackboard) Tick(_ context.Context, scope *Scope) Status {
	if s.key == `` {
		return s.conclude(scope, scope.Fail(s, `error`, fmt.Errorf(`SetBlackboard %q has no key`, s.name)))
	}
	scope.Blackboard.Set(s.key, s.value)
	return s.conclude(scope, Success)
}

// NewCheckBlackboard constructs a CheckBlackboard leaf.
func NewCheckBlackboard(name, key, expected string) *CheckBlackboard {
	return &CheckBlackboard{node: newNode(`CheckBlackboard`, Config{`name`: name, `key`: key, `expected_value`: expected}), key: key, expected: expected}
}

// Tick implements Node.Tick
func (c *CheckBlackboard) Tick(_ context.Context, scope *Scope) Status {
	v, ok := scope.Blackboard.Get(c.key)
	if ok && fmt.Sprint(v) == c.expected {
		return c.conclude(scope, Success)
	}
	return c.conclude(scope, Failure)
}

var compareOps = map[string]struct{}{
	`==`: {}, `!=`: {}, `<`: {}, `<=`: {}, `>`: {}, `>=`: {},
}

// NewCompare constructs a Compare leaf, compiling the comparison up front.
func NewCompare(name, left, op, right string) (*Compare, error) {
	if _, ok := compareOps[op]; !ok {
		return nil, fmt.Errorf(`behaviorforest.NewCompare unsupported op %q`, op)
	}
	program, err := expr.Compile(fmt.Sprintf(`left %s right`, op), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf(`behaviorforest.NewCompare compile failed: %w`, err)
	}
	return &Compare{
		node:    newNode(`Compare`, Config{`name`: name, `left`: left, `op`: op, `right`: right}),
		left:    left,
		right:   right,
		op:      op,
		program: program,
	}, nil
}

// Tick implements Node.Tick
func (c *Compare) Tick(_ context.Context, scope *Scope) Status {
	env := map[string]any{
		`left`:  resolveOperand(scope.Blackboard, c.left),
		`right`: resolveOperand(scope.Blackboard, c.right),
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		return c.conclude(scope, scope.Fail(c, `error`, err))
	}
	if ok, _ := out.(bool); ok {
		return c.conclude(scope, Success)
	}
	return c.conclude(scope, Failure)
}

// resolveOperand interprets an operand as a blackboard key when present,
// otherwise as an int, float, bool, or string literal, in that order.
func resolveOperand(blackboard *Blackboard, operand string) any {
	if blackboard != nil {
		if v, ok := blackboard.Get(operand); ok {
			return normalizeNumber(v)
		}
	}
	if v, err := strconv.ParseInt(operand, 10, 64); err == nil {
		return float64(v)
	}
	if v, err := strconv.ParseFloat(operand, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(operand); err == nil {
		return v
	}
	return operand
}

// normalizeNumber widens numeric blackboard values to float64 so that mixed
// int/float comparisons behave by value.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// formatSeconds renders a duration as the fractional-seconds text used by
// the XML duration attribute.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'g', -1, 64)
}
