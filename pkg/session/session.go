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
	"github.com/google/uuid"
	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/counter"
	"github.com/rabbitstack/sl2/pkg/hashing"
	"github.com/rabbitstack/sl2/pkg/match"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/target"
	"github.com/rabbitstack/sl2/pkg/util/atomic"
	log "github.com/sirupsen/logrus"
)

// Config holds the session tunables.
type Config struct {
	// ModuleBase is the load address of the instrumented module.
	ModuleBase uint64
	// HashCacheSize is the capacity of the argument hash cache.
	HashCacheSize int
	// ASLRMask overrides the return address mask. Zero keeps the default.
	ASLRMask uint64
	// StrictBufferBounds rejects buffer comparisons of unknown size.
	StrictBufferBounds bool
}

// Session is the state of a single instrumented run. It owns the call
// counters, so the call indices are relative to the session start.
// Intercept may be called from many threads.
type Session struct {
	id       uuid.UUID
	counters *counter.Counters
	builder  *callevent.Builder
	engine   *match.Engine
	log      *log.Entry
	targeted atomic.Uint64
}

// New creates a session matching calls against the specs. Target memory is
// accessed through the reader.
func New(specs []target.Spec, mem memory.Reader, c Config) *Session {
	id := uuid.New()
	logger := log.WithField("session", id.String())
	counters := counter.New()
	s := &Session{
		id:       id,
		counters: counters,
		builder:  callevent.NewBuilder(hashing.NewHasher(c.HashCacheSize), c.ModuleBase),
		log:      logger,
	}
	s.engine = match.New(specs, counters, mem,
		match.WithASLRMask(c.ASLRMask),
		match.WithStrictBufferBounds(c.StrictBufferBounds),
		match.WithLogger(logger),
	)
	logger.Infof("session started with %d target spec(s) for %v", len(specs), s.engine.Targets())
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Builder returns the event builder bound to the session module base.
func (s *Session) Builder() *callevent.Builder { return s.builder }

// Counters returns the session call counters.
func (s *Session) Counters() *counter.Counters { return s.counters }

// Engine returns the session matching engine.
func (s *Session) Engine() *match.Engine { return s.engine }

// Intercept reports whether the call should be fuzzed.
func (s *Session) Intercept(evt *callevent.Event) bool {
	if !s.engine.IsTargeted(evt) {
		return false
	}
	s.targeted.Inc()
	s.log.Infof("targeting %s", evt)
	return true
}

// Targeted returns the number of calls selected for fuzzing so far.
func (s *Session) Targeted() uint64 { return s.targeted.Load() }
