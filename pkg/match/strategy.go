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
	"bytes"

	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/target"
)

const (
	// SubASLRBits is the number of low return address bits that survive
	// address space layout randomization
	SubASLRBits = 16
	// SubASLRMask masks the return address offset down to the sub-ASLR bits
	SubASLRMask uint64 = 1<<SubASLRBits - 1
	// MaxBufferCompare is the upper bound of bytes compared by the buffer strategy
	MaxBufferCompare = 16
)

// Call is the intercepted call as seen by the strategies. FuncIndex and
// RetAddrIndex are the numbers of calls to the same function and at the
// same return address that preceded this one.
type Call struct {
	*callevent.Event
	FuncIndex    uint64
	RetAddrIndex uint64
}

// indices accepts when the number of prior calls to the function equals the index.
func indices(s *target.Spec, c *Call) bool {
	return s.Index >= 0 && uint64(s.Index) == c.FuncIndex
}

// returnAddresses compares the sub-ASLR bits of the return address offsets.
func returnAddresses(s *target.Spec, c *Call, mask uint64) bool {
	return uint64(s.ReturnAddressOffset)&mask == c.ReturnAddressOffset&mask
}

// returnCounts accepts when the number of prior calls at the return address equals the count.
func returnCounts(s *target.Spec, c *Call) bool {
	return s.ReturnAddressCount >= 0 && uint64(s.ReturnAddressCount) == c.RetAddrIndex
}

func argHashes(s *target.Spec, c *Call) bool {
	return s.ArgHash == c.ArgHash
}

// filenames compares the source paths. Calls without a resolved source never match.
func filenames(s *target.Spec, c *Call) bool {
	return c.HasSource() && s.Source == c.SourcePath
}

// bufferBound returns the number of leading bytes the buffer strategy
// compares, and false if the transferred byte count is unknown.
func bufferBound(s *target.Spec, c *Call) (int, bool) {
	n := MaxBufferCompare
	if len(s.Buffer) < n {
		n = len(s.Buffer)
	}
	if c.BytesRead == nil {
		return n, false
	}
	if int64(*c.BytesRead) < int64(n) {
		n = int(*c.BytesRead)
	}
	return n, true
}

// buffers compares the leading bytes of the destination buffer with the
// captured buffer. The destination is always read through the memory reader.
func (e *Engine) buffers(s *target.Spec, c *Call) bool {
	if c.BufferAddr == 0 {
		return false
	}
	n, known := bufferBound(s, c)
	if !known {
		unboundedCompares.Add(1)
		if e.strict {
			return false
		}
		if e.lim.Allow() {
			e.log.Warnf("size of the %s destination buffer is unknown, comparing %d bytes at 0x%x", c.Function, n, c.BufferAddr)
		}
	}
	b, err := e.mem.Read(c.BufferAddr, n)
	if err != nil {
		memoryReadErrors.Add(1)
		return false
	}
	return bytes.Equal(b, s.Buffer[:n])
}

// accepts walks the strategies enabled in the spec mode and reports
// whether any of them accepts the call.
func (e *Engine) accepts(s *target.Spec, c *Call) bool {
	m := s.Mode
	switch {
	case m.Has(target.MatchIndex) && indices(s, c):
		return true
	case m.Has(target.MatchReturnAddress) && returnAddresses(s, c, e.mask):
		return true
	case m.Has(target.MatchArgHash) && argHashes(s, c):
		return true
	case m.Has(target.MatchArgBuffer) && e.buffers(s, c):
		return true
	case m.Has(target.MatchFilename) && filenames(s, c):
		return true
	case m.Has(target.MatchReturnCount) && returnCounts(s, c):
		return true
	}
	if m.Has(target.LowPrecision) {
		if filenames(s, c) {
			return true
		}
		if returnAddresses(s, c, e.mask) && e.buffers(s, c) {
			return true
		}
	}
	if m.Has(target.MediumPrecision) && argHashes(s, c) && returnAddresses(s, c, e.mask) {
		return true
	}
	return m.Has(target.HighPrecision) && argHashes(s, c) && returnCounts(s, c)
}
