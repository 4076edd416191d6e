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

package memory

import (
	"fmt"
	"sort"
	"sync"

	errs "github.com/rabbitstack/sl2/pkg/errors"
)

// Reader reads memory of the instrumented target. Implementations must
// refuse the zero address with errors.ErrNullPointer and report unreadable
// ranges as errors rather than faulting.
type Reader interface {
	Read(addr uintptr, size int) ([]byte, error)
}

// region is the contiguous span of bytes mapped at the base address.
type region struct {
	base uintptr
	data []byte
}

func (r region) end() uintptr { return r.base + uintptr(len(r.data)) }

// Map is the in-memory address space made of non-overlapping regions. It
// stands in for the target process when replaying recorded traces.
type Map struct {
	mu      sync.RWMutex
	regions []region // sorted by base
}

// NewMap creates an empty address space.
func NewMap() *Map {
	return &Map{regions: make([]region, 0)}
}

// Add maps the data at the base address. Regions must not overlap.
func (m *Map) Add(base uintptr, data []byte) error {
	if base == 0 {
		return errs.ErrNullPointer
	}
	if len(data) == 0 {
		return fmt.Errorf("empty region at 0x%x", base)
	}
	r := region{base: base, data: append([]byte(nil), data...)}
	if r.end() < base {
		return fmt.Errorf("region at 0x%x wraps the address space", base)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].base >= base })
	if i > 0 && m.regions[i-1].end() > base {
		return fmt.Errorf("region at 0x%x overlaps region at 0x%x", base, m.regions[i-1].base)
	}
	if i < len(m.regions) && r.end() > m.regions[i].base {
		return fmt.Errorf("region at 0x%x overlaps region at 0x%x", base, m.regions[i].base)
	}
	m.regions = append(m.regions, region{})
	copy(m.regions[i+1:], m.regions[i:])
	m.regions[i] = r
	return nil
}

// Read returns a copy of size bytes starting at the address. The whole
// range must lie within a single region.
func (m *Map) Read(addr uintptr, size int) ([]byte, error) {
	if addr == 0 {
		return nil, errs.ErrNullPointer
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid read size %d", size)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].end() > addr })
	if i == len(m.regions) || m.regions[i].base > addr {
		return nil, fmt.Errorf("address 0x%x is not mapped", addr)
	}
	r := m.regions[i]
	off := addr - r.base
	if uintptr(size) > uintptr(len(r.data))-off {
		return nil, fmt.Errorf("read of %d bytes at 0x%x crosses the region boundary", size, addr)
	}
	b := make([]byte, size)
	copy(b, r.data[off:])
	return b, nil
}

// Len returns the number of mapped regions.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.regions)
}
