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

package utf16

import (
	"unicode/utf16"
	"unicode/utf8"
)

const (
	// 0xd800-0xdc00 encodes the high 10 bits of a pair.
	surr1 = 0xd800
	// 0xdc00-0xe000 encodes the low 10 bits of a pair.
	surr2 = 0xdc00
)

func isHighSurrogate(r rune) bool { return r >= surr1 && r <= 0xdbff }
func isLowSurrogate(r rune) bool  { return r >= surr2 && r <= 0xdfff }

// Decode converts the NUL-terminated wide string, as written by
// GetFinalPathNameByHandle into a fixed MAX_PATH buffer, to UTF-8.
// Code units following the first NUL are ignored and unpaired
// surrogates decode to U+FFFD.
func Decode(p []uint16) string {
	for i, c := range p {
		if c == 0 {
			p = p[:i]
			break
		}
	}
	s := make([]byte, 0, 2*len(p))
	for i := 0; i < len(p); i++ {
		r1 := rune(p[i])
		r := r1
		switch {
		case isHighSurrogate(r1):
			r = utf8.RuneError
			if i+1 < len(p) && isLowSurrogate(rune(p[i+1])) {
				r = 0x10000 + (r1-surr1)<<10 + (rune(p[i+1]) - surr2)
				i++
			}
		case isLowSurrogate(r1):
			r = utf8.RuneError
		}
		s = utf8.AppendRune(s, r)
	}
	return string(s)
}

// StringToUTF16 encodes the string to the NUL-terminated wide string.
func StringToUTF16(s string) []uint16 {
	return append(utf16.Encode([]rune(s)), 0)
}
