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
	"fmt"
	"strconv"
	"strings"
)

// Mode is the bitmask of matching strategies and precision presets
// that decide whether a call is the target.
type Mode uint32

const (
	// MatchIndex accepts the call if the number of prior calls to the function equals the index
	MatchIndex Mode = 1 << iota
	// MatchReturnAddress accepts the call if the sub-ASLR bits of the return address offset are equal
	MatchReturnAddress
	// MatchArgHash accepts the call if the argument hashes are equal
	MatchArgHash
	// MatchArgBuffer accepts the call if the leading bytes of the destination buffer equal the captured buffer
	MatchArgBuffer
	// MatchFilename accepts the call if the source file paths are equal
	MatchFilename
	// MatchReturnCount accepts the call if the number of prior calls at the return address equals the count
	MatchReturnCount
	// LowPrecision accepts on filename, or on return address together with the buffer prefix
	LowPrecision
	// MediumPrecision accepts on argument hash together with return address
	MediumPrecision
	// HighPrecision accepts on argument hash together with the return address call count
	HighPrecision
)

// KnownModes is the mask of all recognized mode bits.
const KnownModes = MatchIndex | MatchReturnAddress | MatchArgHash | MatchArgBuffer |
	MatchFilename | MatchReturnCount | LowPrecision | MediumPrecision | HighPrecision

type modeFlag struct {
	name  string
	value Mode
}

var modeFlags = []modeFlag{
	{"MATCH_INDEX", MatchIndex},
	{"MATCH_RETN_ADDRESS", MatchReturnAddress},
	{"MATCH_ARG_HASH", MatchArgHash},
	{"MATCH_ARG_COMPARE", MatchArgBuffer},
	{"MATCH_FILENAMES", MatchFilename},
	{"MATCH_RETN_COUNT", MatchReturnCount},
	{"LOW_PRECISION", LowPrecision},
	{"MEDIUM_PRECISION", MediumPrecision},
	{"HIGH_PRECISION", HighPrecision},
}

// Has determines if any of the given mode bits is set.
func (m Mode) Has(f Mode) bool { return m&f != 0 }

// Unknown returns the unrecognized bits of the mode.
func (m Mode) Unknown() Mode { return m &^ KnownModes }

// String renders the set bits delimited by the `|` separator.
// Unrecognized bits are rendered as a hex literal.
func (m Mode) String() string {
	if m == 0 {
		return "NONE"
	}
	var (
		n strings.Builder
		s string
	)
	for _, flag := range modeFlags {
		if m&flag.value != 0 {
			n.WriteString(s)
			n.WriteString(flag.name)
			s = "|"
		}
	}
	if u := m.Unknown(); u != 0 {
		n.WriteString(s)
		n.WriteString("0x" + strconv.FormatUint(uint64(u), 16))
	}
	return n.String()
}

// ParseMode parses the `|` delimited list of mode names. Numeric
// literals are also accepted, so both MATCH_INDEX|0x4 and 5 are valid.
func ParseMode(s string) (Mode, error) {
	var m Mode
	for _, tok := range strings.Split(s, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		var found bool
		for _, flag := range modeFlags {
			if strings.EqualFold(flag.name, tok) {
				m |= flag.value
				found = true
				break
			}
		}
		if found {
			continue
		}
		v, err := strconv.ParseUint(tok, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("unknown match mode %q", tok)
		}
		m |= Mode(v)
	}
	return m, nil
}
