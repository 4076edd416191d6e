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

package counter

import (
	"sync"

	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/util/atomic"
)

// Counters keeps the number of observed calls per intercepted function and
// per call site return address for the lifetime of the instrumented run.
// Each increment is atomic, so the values returned for a given key form a
// total order even when calls are delivered from many threads.
type Counters struct {
	funcs   [callevent.MaxFunction]atomic.Uint64
	retaddr sync.Map // uint64 -> *atomic.Uint64
}

// New creates empty counters.
func New() *Counters {
	return &Counters{}
}

// IncrementFunction bumps the call counter of the function and returns the
// post-increment value. Unknown functions are not counted and yield zero.
func (c *Counters) IncrementFunction(fn callevent.Function) uint64 {
	if !fn.IsValid() {
		return 0
	}
	return c.funcs[fn].Inc()
}

// IncrementReturnAddress bumps the counter of the return address offset and
// returns the post-increment value.
func (c *Counters) IncrementReturnAddress(offset uint64) uint64 {
	v, ok := c.retaddr.Load(offset)
	if !ok {
		v, _ = c.retaddr.LoadOrStore(offset, atomic.NewUint64(0))
	}
	return v.(*atomic.Uint64).Inc()
}

// Function returns the number of calls observed for the function.
func (c *Counters) Function(fn callevent.Function) uint64 {
	if !fn.IsValid() {
		return 0
	}
	return c.funcs[fn].Load()
}

// ReturnAddress returns the number of calls observed at the return address offset.
func (c *Counters) ReturnAddress(offset uint64) uint64 {
	v, ok := c.retaddr.Load(offset)
	if !ok {
		return 0
	}
	return v.(*atomic.Uint64).Load()
}

// ReturnAddresses returns the number of distinct call sites seen so far.
func (c *Counters) ReturnAddresses() int {
	n := 0
	c.retaddr.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset zeroes all counters. It must not race with increments.
func (c *Counters) Reset() {
	for i := range c.funcs {
		c.funcs[i].Store(0)
	}
	c.retaddr.Range(func(k, _ any) bool {
		c.retaddr.Delete(k)
		return true
	})
}
