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

package session

import (
	"testing"

	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/target"
	"github.com/rabbitstack/sl2/pkg/util/utf16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIntercept(t *testing.T) {
	const base = 0x7ff600000000
	path := utf16.StringToUTF16(`C:\fuzz\input.bin`)

	mem := memory.NewMap()
	require.NoError(t, mem.Add(0x50000, []byte("PK\x03\x04 archive")))

	// capture the hash of the third read the way the recording run would
	probe := New(nil, mem, Config{ModuleBase: base})
	read := func(s *Session, pos uint64) *callevent.Event {
		n := uint32(8)
		return s.Builder().ReadFile(callevent.ReadFileArgs{
			Handle:              0x1c,
			Buffer:              0x50000,
			NumberOfBytesToRead: 8,
			NumberOfBytesRead:   &n,
			FilePointer:         pos,
			Path:                path,
			ReturnAddress:       base + 0x1c2f,
		})
	}
	hash := read(probe, 16).ArgHash

	spec := target.NewSpec()
	spec.Selected = true
	spec.FunctionName = "ReadFile"
	spec.ArgHash = hash
	spec.ReturnAddressCount = 2
	spec.Mode = target.HighPrecision
	spec.Buffer = []byte("PK")

	s := New([]target.Spec{spec}, mem, Config{ModuleBase: base, HashCacheSize: 16})
	assert.NotEqual(t, probe.ID(), s.ID())
	assert.Equal(t, uint64(base), s.Builder().ModuleBase())

	var verdicts []bool
	for _, pos := range []uint64{0, 8, 16, 24} {
		verdicts = append(verdicts, s.Intercept(read(s, pos)))
	}
	assert.Equal(t, []bool{false, false, true, false}, verdicts)
	assert.Equal(t, uint64(1), s.Targeted())
	assert.Equal(t, uint64(4), s.Counters().Function(callevent.ReadFile))
	assert.Equal(t, uint64(4), s.Counters().ReturnAddress(0x1c2f))
}

func TestSessionRegistryProbe(t *testing.T) {
	spec := target.NewSpec()
	spec.Selected = true
	spec.FunctionName = "RegQueryValueEx"
	spec.Index = 0
	s := New([]target.Spec{spec}, memory.NewMap(), Config{})

	// size queries yield no event and don't count
	evt, ok := s.Builder().RegQueryValueEx(callevent.RegQueryValueExArgs{Key: 1, ValueName: "Data"})
	assert.False(t, ok)
	assert.False(t, s.Intercept(evt))

	n := uint32(4)
	evt, ok = s.Builder().RegQueryValueEx(callevent.RegQueryValueExArgs{Key: 1, ValueName: "Data", Data: 0x1000, CbData: &n})
	require.True(t, ok)
	assert.True(t, s.Intercept(evt))
}
