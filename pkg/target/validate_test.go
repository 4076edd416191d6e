/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package target

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	hash := strings.Repeat("a", 64)
	specs := []Spec{
		{Selected: true, FunctionName: "ReadFile", Index: 2, Mode: MatchIndex, Buffer: []byte{1}},
		{Selected: false, FunctionName: "readfile", Buffer: []byte{1}},
		{Selected: true, FunctionName: "recv", Mode: MatchArgHash, ArgHash: "abc", Buffer: []byte{1}},
		{Selected: true, FunctionName: "fread", Mode: 0x400, Buffer: []byte{1}},
		{Selected: true, FunctionName: "ReadFile", Mode: MatchFilename | HighPrecision, ArgHash: hash, ReturnAddressCount: 0, Buffer: []byte{1}},
		{Selected: true, FunctionName: "RaedFile", Mode: MatchIndex, Index: 1, Buffer: []byte{1}},
	}

	issues := Validate(specs)
	byIndex := make(map[int][]Issue)
	for _, i := range issues {
		byIndex[i.Index] = append(byIndex[i.Index], i)
	}

	assert.Empty(t, byIndex[0])

	require.Len(t, byIndex[1], 1)
	assert.Equal(t, Error, byIndex[1][0].Severity)
	assert.Contains(t, byIndex[1][0].Message, "Did you mean ReadFile?")

	require.Len(t, byIndex[2], 1)
	assert.Contains(t, byIndex[2][0].Message, "argument hash has 3 characters")

	require.Len(t, byIndex[3], 1)
	assert.Equal(t, Error, byIndex[3][0].Severity)

	require.Len(t, byIndex[4], 1)
	assert.Contains(t, byIndex[4][0].Message, "MATCH_FILENAMES")

	require.Len(t, byIndex[5], 1)
	assert.Contains(t, byIndex[5][0].Message, "Did you mean ReadFile?")
}
