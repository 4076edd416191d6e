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

package match

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/counter"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bufAddr = 0x40000

func newMem(t *testing.T, data []byte) *memory.Map {
	m := memory.NewMap()
	require.NoError(t, m.Add(bufAddr, data))
	return m
}

func spec(fn string, mode target.Mode) target.Spec {
	s := target.NewSpec()
	s.Selected = true
	s.FunctionName = fn
	s.Mode = mode
	s.Buffer = []byte{}
	return s
}

func u32(n uint32) *uint32 { return &n }

func TestIsTargetedIndex(t *testing.T) {
	s := spec("ReadFile", target.MatchIndex)
	s.Index = 2
	e := New([]target.Spec{s}, counter.New(), memory.NewMap())

	var verdicts []bool
	for i := 0; i < 4; i++ {
		verdicts = append(verdicts, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile}))
	}
	assert.Equal(t, []bool{false, false, true, false}, verdicts)
}

func TestIsTargetedSkipsUnselectedSpecs(t *testing.T) {
	s1 := spec("ReadFile", target.MatchIndex)
	s1.Index = 5
	s2 := spec("ReadFile", target.MatchIndex)
	s2.Index = 0
	s2.Selected = false
	e := New([]target.Spec{s1, s2}, counter.New(), memory.NewMap())

	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile}))
}

func TestIsTargetedSkipsUnselectedHashSpecs(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	s1 := spec("ReadFile", target.MatchArgHash)
	s1.ArgHash = strings.Repeat("cd", 32)
	s2 := spec("ReadFile", target.MatchArgHash)
	s2.ArgHash = hash
	s2.Selected = false
	e := New([]target.Spec{s1, s2}, counter.New(), memory.NewMap())

	evt := &callevent.Event{Function: callevent.ReadFile, ArgHash: hash}
	assert.False(t, e.IsTargeted(evt))
	assert.False(t, e.Evaluate(&Call{Event: evt}))

	// the same spec matches once selected
	s2.Selected = true
	e = New([]target.Spec{s1, s2}, counter.New(), memory.NewMap())
	assert.True(t, e.IsTargeted(evt))
}

func TestIsTargetedSkipsOtherFunctions(t *testing.T) {
	s := spec("recv", target.MatchIndex)
	s.Index = 0
	c := counter.New()
	e := New([]target.Spec{s}, c, memory.NewMap())

	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x10}))
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x10}))
	// counters advance even for functions without specs
	assert.Equal(t, uint64(2), c.Function(callevent.ReadFile))
	assert.Equal(t, uint64(2), c.ReturnAddress(0x10))

	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.Recv, ReturnAddressOffset: 0x10}))
	assert.Equal(t, []callevent.Function{callevent.Recv}, e.Targets())
}

func TestIsTargetedMalformedEvents(t *testing.T) {
	c := counter.New()
	e := New([]target.Spec{spec("ReadFile", target.MatchIndex)}, c, memory.NewMap())
	assert.False(t, e.IsTargeted(nil))
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.MaxFunction + 3}))
	assert.False(t, e.Evaluate(nil))
	assert.False(t, e.Evaluate(&Call{}))
	assert.Equal(t, 0, c.ReturnAddresses())
}

func TestBufferBound(t *testing.T) {
	captured := []byte("0123456789ABCDEFGHIJ")
	dest := []byte("0123456789xxxxxxxxxx")

	var tests = []struct {
		name      string
		bytesRead *uint32
		strict    bool
		expected  bool
	}{
		{"bounded by bytes read", u32(10), false, true},
		{"differs past bytes read", u32(12), false, false},
		{"bounded by captured prefix", u32(100), false, false},
		{"zero bytes read", u32(0), false, true},
		{"unknown bytes read", nil, false, false},
		{"unknown bytes read strict", nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := spec("ReadFile", target.MatchArgBuffer)
			s.Buffer = captured
			e := New([]target.Spec{s}, counter.New(), newMem(t, dest), WithStrictBufferBounds(tt.strict))
			evt := &callevent.Event{Function: callevent.ReadFile, BufferAddr: bufAddr, BytesRead: tt.bytesRead}
			assert.Equal(t, tt.expected, e.IsTargeted(evt))
		})
	}
}

func TestBufferUnknownBytesRead(t *testing.T) {
	s := spec("recv", target.MatchArgBuffer)
	s.Buffer = []byte("GET /")
	mem := newMem(t, []byte("GET /index.html HTTP/1.1"))

	e := New([]target.Spec{s}, counter.New(), mem)
	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.Recv, BufferAddr: bufAddr}))

	e = New([]target.Spec{s}, counter.New(), mem, WithStrictBufferBounds(true))
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.Recv, BufferAddr: bufAddr}))
}

func TestBufferNullAddress(t *testing.T) {
	s := spec("ReadFile", target.MatchArgBuffer)
	s.Buffer = []byte{}
	e := New([]target.Spec{s}, counter.New(), newMem(t, []byte{1}))
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, BytesRead: u32(1)}))
	// unmapped memory
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, BufferAddr: 0x1000, BytesRead: u32(1)}))
	// an empty capture compares zero bytes
	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, BufferAddr: bufAddr, BytesRead: u32(1)}))
}

func TestReturnAddressMask(t *testing.T) {
	s := spec("ReadFile", target.MatchReturnAddress)
	s.ReturnAddressOffset = 0x7ff61c2f5678

	e := New([]target.Spec{s}, counter.New(), memory.NewMap())
	assert.Equal(t, uint64(0xffff), e.Mask())
	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x5678}))
	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x12345678}))
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x5679}))

	e = New([]target.Spec{s}, counter.New(), memory.NewMap(), WithASLRMask(0xfffff))
	assert.False(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x5678}))
	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0xf5678}))
}

func TestReturnAddressIgnoresHighBits(t *testing.T) {
	offsets := []uint64{0, 0x5678, 0xffff, 0x7ff61c2f5678}
	shifts := []uint64{1, 2, 0xabc, 1 << 47, ^uint64(0) >> SubASLRBits}

	for _, x := range offsets {
		s := spec("ReadFile", target.MatchReturnAddress)
		s.ReturnAddressOffset = int64(x)
		for _, k := range shifts {
			// wraps around the top of the address range for the larger shifts
			y := x + k<<SubASLRBits
			c := &Call{Event: &callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: y}}
			assert.True(t, returnAddresses(&s, c, SubASLRMask), "x=%#x y=%#x", x, y)
			assert.Equal(t, x&SubASLRMask, y&SubASLRMask)
		}
		c := &Call{Event: &callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: x + 1}}
		assert.False(t, returnAddresses(&s, c, SubASLRMask), "x=%#x", x)
	}

	s := spec("ReadFile", target.MatchReturnAddress)
	s.ReturnAddressOffset = 0x1234
	e := New([]target.Spec{s}, counter.New(), memory.NewMap())
	assert.True(t, e.IsTargeted(&callevent.Event{Function: callevent.ReadFile, ReturnAddressOffset: 0x1234 + (^uint64(0)>>SubASLRBits)<<SubASLRBits}))
}

func TestPrecisionPresets(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	mem := newMem(t, []byte("MZ\x90\x00\x03"))

	var tests = []struct {
		name     string
		mode     target.Mode
		evt      callevent.Event
		retIndex int
		expected bool
	}{
		{
			"low via filename",
			target.LowPrecision,
			callevent.Event{SourcePath: `C:\in.bin`, ReturnAddressOffset: 0x1},
			0, true,
		},
		{
			"low via return address and buffer",
			target.LowPrecision,
			callevent.Event{ReturnAddressOffset: 0x1c2f, BufferAddr: bufAddr, BytesRead: u32(4)},
			0, true,
		},
		{
			"low with return address but foreign buffer",
			target.LowPrecision,
			callevent.Event{ReturnAddressOffset: 0x1c2f, BufferAddr: bufAddr + 1, BytesRead: u32(4)},
			0, false,
		},
		{
			"low without source or return address",
			target.LowPrecision,
			callevent.Event{ReturnAddressOffset: 0x1, BufferAddr: bufAddr, BytesRead: u32(4)},
			0, false,
		},
		{
			"medium",
			target.MediumPrecision,
			callevent.Event{ReturnAddressOffset: 0x31c2f, ArgHash: hash},
			0, true,
		},
		{
			"medium with other hash",
			target.MediumPrecision,
			callevent.Event{ReturnAddressOffset: 0x1c2f, ArgHash: strings.Repeat("0", 64)},
			0, false,
		},
		{
			"high on second call at return address",
			target.HighPrecision,
			callevent.Event{ReturnAddressOffset: 0x99, ArgHash: hash},
			1, true,
		},
		{
			"high on first call at return address",
			target.HighPrecision,
			callevent.Event{ReturnAddressOffset: 0x99, ArgHash: hash},
			0, false,
		},
		{
			"unrecognized mode",
			target.Mode(0x400),
			callevent.Event{SourcePath: `C:\in.bin`, ReturnAddressOffset: 0x1c2f, ArgHash: hash},
			1, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := spec("ReadFile", tt.mode)
			s.Source = `C:\in.bin`
			s.ReturnAddressOffset = 0x1c2f
			s.ReturnAddressCount = 1
			s.ArgHash = hash
			s.Buffer = []byte("MZ\x90\x00")

			e := New([]target.Spec{s}, counter.New(), mem)
			evt := tt.evt
			evt.Function = callevent.ReadFile
			assert.Equal(t, tt.expected, e.Evaluate(&Call{Event: &evt, RetAddrIndex: uint64(tt.retIndex)}))
		})
	}
}

func TestStrategiesAreIndependent(t *testing.T) {
	s := spec("ReadFile", target.MatchFilename|target.MatchReturnCount)
	s.Source = `C:\in.bin`
	s.ReturnAddressCount = 3
	e := New([]target.Spec{s}, counter.New(), memory.NewMap())

	assert.True(t, e.Evaluate(&Call{Event: &callevent.Event{Function: callevent.ReadFile, SourcePath: `C:\in.bin`}}))
	assert.True(t, e.Evaluate(&Call{Event: &callevent.Event{Function: callevent.ReadFile}, RetAddrIndex: 3}))
	assert.False(t, e.Evaluate(&Call{Event: &callevent.Event{Function: callevent.ReadFile}, RetAddrIndex: 2}))

	// empty source never matches unresolved calls
	s.Source = ""
	e = New([]target.Spec{s}, counter.New(), memory.NewMap())
	assert.False(t, e.Evaluate(&Call{Event: &callevent.Event{Function: callevent.ReadFile}}))
}

func TestIsTargetedConcurrent(t *testing.T) {
	s := spec("fread", target.MatchIndex)
	s.Index = 500
	c := counter.New()
	e := New([]target.Spec{s}, c, memory.NewMap())

	var (
		wg   sync.WaitGroup
		hits atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 125; j++ {
				if e.IsTargeted(&callevent.Event{Function: callevent.Fread, ReturnAddressOffset: uint64(j % 3)}) {
					hits.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, uint64(1000), c.Function(callevent.Fread))
	assert.Equal(t, 3, c.ReturnAddresses())
}
