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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_Status(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    Status
		expected Status
	}{
		{name: `running`, input: Running, expected: Running},
		{name: `success`, input: Success, expected: Success},
		{name: `failure`, input: Failure, expected: Failure},
		{name: `zero`, input: 0, expected: Failure},
		{name: `out of bounds`, input: 127, expected: Failure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.input.Status())
		})
	}
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, `running`, Running.String())
	require.Equal(t, `success`, Success.String())
	require.Equal(t, `failure`, Failure.String())
	require.Equal(t, `unknown status (99)`, Status(99).String())
}

func TestPolicy_String(t *testing.T) {
	require.Equal(t, `require_one`, RequireOne.String())
	require.Equal(t, `require_all`, RequireAll.String())
	require.Equal(t, `unknown policy (9)`, Policy(9).String())
}

func TestParsePolicy(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Policy
		err      bool
	}{
		{input: `require_one`, expected: RequireOne},
		{input: `REQUIRE_ONE`, expected: RequireOne},
		{input: `require_all`, expected: RequireAll},
		{input: `REQUIRE_ALL`, expected: RequireAll},
		{input: ``, expected: RequireAll},
		{input: `majority`, err: true},
	} {
		policy, err := ParsePolicy(tc.input)
		if tc.err {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.expected, policy)
	}
}
