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
	"errors"
	"fmt"
)

var (
	// ErrInvalidTree indicates a structurally invalid tree, e.g. a cycle, a shared
	// subtree, a decorator without exactly one child, or an unnamed node. Use
	// errors.Is to check this case.
	ErrInvalidTree = errors.New(`behaviorforest: invalid tree`)

	// ErrUnknownNodeType indicates a registry lookup failure, either directly or
	// while resolving an XML element name.
	ErrUnknownNodeType = errors.New(`behaviorforest: unknown node type`)

	// ErrParse indicates malformed XML input, see also ParseError.
	ErrParse = errors.New(`behaviorforest: parse error`)

	// ErrInvalidForestState indicates an operation that is disallowed in the
	// forest's current run-state.
	ErrInvalidForestState = errors.New(`behaviorforest: invalid forest state`)

	// ErrUnknownDependency indicates a forest node depending on a name that is
	// not registered.
	ErrUnknownDependency = errors.New(`behaviorforest: unknown dependency`)

	// ErrCyclicDependency indicates a cycle in the forest dependency relation.
	ErrCyclicDependency = errors.New(`behaviorforest: cyclic dependency`)

	// ErrNoService indicates a middleware call against a name with no handler or
	// no registered target.
	ErrNoService = errors.New(`behaviorforest: no service`)

	// ErrService indicates that a middleware handler failed; the handler error
	// is wrapped and available via errors.Unwrap / errors.Is.
	ErrService = errors.New(`behaviorforest: service error`)

	// ErrTimeout indicates a middleware call exceeding its per-call timeout.
	ErrTimeout = errors.New(`behaviorforest: timeout`)

	// ErrCancelled indicates work collapsed by cooperative cancellation.
	ErrCancelled = errors.New(`behaviorforest: cancelled`)

	// ErrCallDepthExceeded indicates behavior-call recursion beyond the
	// configured depth limit.
	ErrCallDepthExceeded = errors.New(`behaviorforest: call depth exceeded`)

	// ErrUnknownMiddleware indicates a middleware lookup by name that matched
	// nothing attached to the forest, or an unknown kind passed to
	// NewMiddleware.
	ErrUnknownMiddleware = errors.New(`behaviorforest: unknown middleware`)

	// ErrMiddlewareKind indicates a middleware lookup that matched by name but
	// not by the requested channel variant.
	ErrMiddlewareKind = errors.New(`behaviorforest: middleware kind mismatch`)
)

// ParseError carries position information for malformed XML, and matches
// ErrParse via errors.Is.
type ParseError struct {
	// Line is the 1-based line of the syntax error, 0 if unknown.
	Line int
	// Offset is the byte offset the decoder had reached, -1 if unknown.
	Offset int64
	// Msg describes the failure.
	Msg string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s on line %d (offset %d): %s", ErrParse.Error(), e.Line, e.Offset, e.Msg)
}

// Is supports errors.Is(err, ErrParse)
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func invalidTree(format string, args ...any) error {
	return fmt.Errorf(`%w: `+format, append([]any{ErrInvalidTree}, args...)...)
}
