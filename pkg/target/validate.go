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
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/hashing"
)

// Severity tells apart specs that can never match from suspicious ones.
type Severity uint8

const (
	// Warning denotes a spec that loads and may match, but likely not as intended
	Warning Severity = iota
	// Error denotes a spec that can never match
	Error
)

// String returns the severity name.
func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue is a problem found in a target spec.
type Issue struct {
	Index    int
	Severity Severity
	Message  string
}

// String returns the issue description.
func (i Issue) String() string {
	return fmt.Sprintf("spec #%d: %s: %s", i.Index, i.Severity, i.Message)
}

// Validate lints the specs for mistakes that would silently prevent them
// from matching. Unselected specs are only checked for unknown functions.
func Validate(specs []Spec) []Issue {
	issues := make([]Issue, 0)
	add := func(i int, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Index: i, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	for i, s := range specs {
		if _, err := callevent.ParseFunction(s.FunctionName); err != nil {
			if sugg := suggestFunction(s.FunctionName); sugg != "" {
				add(i, Error, "%v. Did you mean %s?", err, sugg)
			} else {
				add(i, Error, "%v", err)
			}
		}
		if !s.Selected {
			continue
		}
		if s.Mode&KnownModes == 0 {
			add(i, Error, "mode %s has no recognized strategy", s.Mode)
		} else if s.Mode.Unknown() != 0 {
			add(i, Warning, "mode %s has unrecognized bits", s.Mode)
		}
		if s.Mode.Has(MatchIndex) && s.Index < 0 {
			add(i, Warning, "MATCH_INDEX with negative call count %d never matches", s.Index)
		}
		if s.Mode.Has(MatchReturnCount|HighPrecision) && s.ReturnAddressCount < 0 {
			add(i, Warning, "negative return address count %d never matches", s.ReturnAddressCount)
		}
		if s.Mode.Has(MatchReturnAddress|LowPrecision|MediumPrecision) && s.ReturnAddressOffset < 0 {
			add(i, Warning, "return address offset is not set")
		}
		if s.Mode.Has(MatchArgHash|MediumPrecision|HighPrecision) && len(s.ArgHash) != hashing.HashLen {
			add(i, Warning, "argument hash has %d characters, expected %d", len(s.ArgHash), hashing.HashLen)
		}
		if s.Mode.Has(MatchFilename) && s.Source == "" {
			add(i, Warning, "MATCH_FILENAMES without source path never matches")
		}
		if s.Mode.Has(MatchArgBuffer|LowPrecision) && len(s.Buffer) == 0 {
			add(i, Warning, "empty buffer matches any destination buffer")
		}
	}
	return issues
}

// suggestFunction returns the closest intercepted function name.
func suggestFunction(name string) string {
	if name == "" {
		return ""
	}
	names := callevent.FunctionNames()
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, dist := "", 4
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(name, n); d < dist {
			best, dist = n, d
		}
	}
	return best
}
