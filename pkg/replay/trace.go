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

// Package replay feeds calls recorded in a YAML trace through a session,
// so target specs can be checked without launching the instrumented
// program.
package replay

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/hashing"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/session"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// HashContext carries the hashed call metadata when the trace
// doesn't record the argument hash itself.
type HashContext struct {
	FileName   string `yaml:"filename"`
	Identifier uint64 `yaml:"identifier"`
	Position   uint64 `yaml:"position"`
	ReadSize   uint64 `yaml:"read-size"`
	Count      uint64 `yaml:"count"`
}

// Call is the recorded call.
type Call struct {
	Function        string       `yaml:"function"`
	Handle          uint64       `yaml:"handle"`
	BufferAddr      uint64       `yaml:"buffer-addr"`
	Data            string       `yaml:"data"`
	RequestedLength uint64       `yaml:"requested-length"`
	BytesRead       *uint32      `yaml:"bytes-read"`
	Position        uint64       `yaml:"position"`
	RetAddrOffset   uint64       `yaml:"retaddr-offset"`
	Source          string       `yaml:"source"`
	ArgHash         string       `yaml:"arg-hash"`
	HashContext     *HashContext `yaml:"hash-context"`
}

// Trace is the sequence of recorded calls in the order they were intercepted.
type Trace struct {
	Module string `yaml:"module"`
	Calls  []Call `yaml:"calls"`

	mem *frame
}

// Verdict is the outcome of replaying a call.
type Verdict struct {
	Index    int
	Event    *callevent.Event
	Targeted bool
}

// frame serves the destination buffer of the call being replayed. Recorded
// programs reuse buffers, so each call gets its own address space.
type frame struct {
	cur *memory.Map
}

func (f *frame) Read(addr uintptr, size int) ([]byte, error) {
	if f.cur == nil {
		return nil, fmt.Errorf("no memory recorded at 0x%x", addr)
	}
	return f.cur.Read(addr, size)
}

// Load reads the trace from the YAML file.
func Load(path string) (*Trace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read trace")
	}
	return Parse(b)
}

// Parse decodes the YAML trace and validates the recorded calls.
func Parse(b []byte) (*Trace, error) {
	t := &Trace{mem: &frame{}}
	if err := yaml.Unmarshal(b, t); err != nil {
		return nil, errors.Wrap(err, "invalid trace")
	}
	for i, c := range t.Calls {
		if _, err := callevent.ParseFunction(c.Function); err != nil {
			return nil, fmt.Errorf("call #%d: %v", i, err)
		}
		if _, err := c.data(); err != nil {
			return nil, fmt.Errorf("call #%d: %v", i, err)
		}
		if c.Data != "" && c.BufferAddr == 0 {
			return nil, fmt.Errorf("call #%d: buffer data recorded without buffer address", i)
		}
	}
	return t, nil
}

// Memory returns the reader the replay session must be created with.
func (t *Trace) Memory() memory.Reader {
	if t.mem == nil {
		t.mem = &frame{}
	}
	return t.mem
}

func (c Call) data() ([]byte, error) {
	s := strings.Join(strings.Fields(c.Data), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "buffer data is not hex encoded")
	}
	return b, nil
}

// event builds the call event. The argument hash is taken verbatim when
// recorded, or computed by the session builder from the hash context.
func (c Call) event(b *callevent.Builder) (*callevent.Event, error) {
	fn, err := callevent.ParseFunction(c.Function)
	if err != nil {
		return nil, err
	}
	e := &callevent.Event{
		Function:            fn,
		Handle:              c.Handle,
		BufferAddr:          uintptr(c.BufferAddr),
		RequestedLength:     c.RequestedLength,
		BytesRead:           c.BytesRead,
		Position:            c.Position,
		ReturnAddressOffset: c.RetAddrOffset,
		SourcePath:          c.Source,
		ArgHash:             c.ArgHash,
	}
	if e.ArgHash == "" && c.HashContext != nil {
		var ctx hashing.Context
		if c.HashContext.FileName != "" {
			if err := ctx.SetFileName(c.HashContext.FileName); err != nil {
				return nil, err
			}
		} else if c.HashContext.Identifier != 0 {
			ctx.SetIdentifier(c.HashContext.Identifier)
		}
		ctx.Position = c.HashContext.Position
		ctx.ReadSize = c.HashContext.ReadSize
		ctx.Count = c.HashContext.Count
		e.ArgHash = b.Hash(&ctx)
	}
	return e, nil
}

// Run replays the calls through the session. The session must have been
// created with the trace memory reader.
func (t *Trace) Run(s *session.Session) ([]Verdict, error) {
	f, ok := t.Memory().(*frame)
	if !ok {
		return nil, errors.New("trace memory is not available")
	}
	verdicts := make([]Verdict, 0, len(t.Calls))
	for i, c := range t.Calls {
		evt, err := c.event(s.Builder())
		if err != nil {
			return nil, fmt.Errorf("call #%d: %v", i, err)
		}
		data, err := c.data()
		if err != nil {
			return nil, fmt.Errorf("call #%d: %v", i, err)
		}
		f.cur = nil
		if len(data) > 0 {
			m := memory.NewMap()
			if err := m.Add(uintptr(c.BufferAddr), data); err != nil {
				return nil, fmt.Errorf("call #%d: %v", i, err)
			}
			f.cur = m
		}
		verdicts = append(verdicts, Verdict{Index: i, Event: evt, Targeted: s.Intercept(evt)})
	}
	f.cur = nil
	log.Debugf("replayed %d call(s) from %s", len(verdicts), t.Module)
	return verdicts, nil
}
