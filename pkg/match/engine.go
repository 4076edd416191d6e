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
	"expvar"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/counter"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/target"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	evaluations       = expvar.NewInt("match.evaluations")
	matches           = expvar.NewMap("match.targeted.calls")
	unboundedCompares = expvar.NewInt("match.buffer.unbounded.compares")
	memoryReadErrors  = expvar.NewInt("match.buffer.read.errors")
	skippedEvents     = expvar.NewInt("match.skipped.events")
)

// Option tweaks the engine behaviour.
type Option func(*Engine)

// WithASLRMask overrides the mask applied to return address offsets before comparison.
func WithASLRMask(mask uint64) Option {
	return func(e *Engine) {
		if mask != 0 {
			e.mask = mask
		}
	}
}

// WithStrictBufferBounds makes buffer comparisons without a known
// transferred byte count fail instead of comparing the captured prefix.
func WithStrictBufferBounds(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) { e.log = logger }
}

// Engine decides whether an intercepted call is the one selected for
// fuzzing. It owns no counters itself, but bumps the shared ones exactly
// once per evaluated call. The engine is safe for concurrent use as long
// as the memory reader is.
type Engine struct {
	specs    []target.Spec
	counters *counter.Counters
	mem      memory.Reader
	// fns has the bits set for functions with at least one selected spec
	fns    *bitset.BitSet
	mask   uint64
	strict bool
	lim    *rate.Limiter
	log    *log.Entry
}

// New creates the matching engine over specs in their load order.
func New(specs []target.Spec, counters *counter.Counters, mem memory.Reader, opts ...Option) *Engine {
	e := &Engine{
		specs:    specs,
		counters: counters,
		mem:      mem,
		fns:      bitset.New(uint(callevent.MaxFunction)),
		mask:     SubASLRMask,
		lim:      rate.NewLimiter(rate.Every(time.Second), 5),
		log:      log.WithField("component", "match"),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, s := range specs {
		if !s.Selected {
			continue
		}
		fn, err := callevent.ParseFunction(s.FunctionName)
		if err != nil {
			continue
		}
		e.fns.Set(uint(fn))
	}
	return e
}

// IsTargeted counts the call and evaluates it against the specs. The
// function and return address counters are incremented exactly once,
// before evaluation, and the strategies see the counts preceding the call.
func (e *Engine) IsTargeted(evt *callevent.Event) bool {
	if evt == nil || !evt.Function.IsValid() {
		skippedEvents.Add(1)
		return false
	}
	c := &Call{
		Event:        evt,
		FuncIndex:    e.counters.IncrementFunction(evt.Function) - 1,
		RetAddrIndex: e.counters.IncrementReturnAddress(evt.ReturnAddressOffset) - 1,
	}
	if !e.fns.Test(uint(evt.Function)) {
		return false
	}
	return e.Evaluate(c)
}

// Evaluate reports whether the call is accepted by any selected spec of
// the same function. Specs are walked in load order and the first accept
// wins. Counters are left untouched.
func (e *Engine) Evaluate(c *Call) bool {
	if c == nil || c.Event == nil {
		skippedEvents.Add(1)
		return false
	}
	evaluations.Add(1)
	name := c.Function.String()
	for i := range e.specs {
		s := &e.specs[i]
		if !s.Selected || s.FunctionName != name {
			continue
		}
		if e.accepts(s, c) {
			matches.Add(name, 1)
			e.log.Debugf("call %s accepted by spec #%d (%s)", c.Event, i, s.Mode)
			return true
		}
	}
	return false
}

// Targets returns the functions with at least one selected spec.
func (e *Engine) Targets() []callevent.Function {
	fns := make([]callevent.Function, 0, e.fns.Count())
	for i, ok := e.fns.NextSet(0); ok; i, ok = e.fns.NextSet(i + 1) {
		fns = append(fns, callevent.Function(i))
	}
	return fns
}

// Mask returns the return address mask in effect.
func (e *Engine) Mask() uint64 { return e.mask }
