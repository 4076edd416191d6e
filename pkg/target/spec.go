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
)

// Spec describes the call occurrence an operator picked for fuzzing during a
// previous capture session. Only selected specs take part in matching.
type Spec struct {
	// Selected indicates the spec participates in matching.
	Selected bool `msgpack:"selected"`
	// FunctionName is the name of the intercepted function.
	FunctionName string `msgpack:"func_name"`
	// Index is the number of calls to the function that preceded the target call.
	Index int64 `msgpack:"callCount"`
	// ReturnAddressOffset is the call site return address relative to the module base.
	ReturnAddressOffset int64 `msgpack:"retAddrOffset"`
	// ReturnAddressCount is the number of calls at the return address that preceded the target call.
	ReturnAddressCount int64 `msgpack:"retAddrCount"`
	// ArgHash is the argument hash of the target call.
	ArgHash string `msgpack:"argHash"`
	// Buffer is the captured prefix of the destination buffer.
	Buffer []byte `msgpack:"buffer"`
	// Source is the path of the file the target call read from.
	Source string `msgpack:"source"`
	// Mode selects the matching strategies.
	Mode Mode `msgpack:"mode"`
}

// NewSpec returns the spec with all fallback values applied. These are
// the values a record gets for each key absent from the targets document.
func NewSpec() Spec {
	return Spec{
		Index:               -1,
		ReturnAddressOffset: -1,
		ReturnAddressCount:  -1,
		Mode:                MatchIndex,
	}
}

// String returns the spec summary.
func (s Spec) String() string {
	return fmt.Sprintf("%s[selected=%t mode=%s index=%d retaddr=0x%x retcount=%d hash=%s source=%s buffer=%d bytes]",
		s.FunctionName, s.Selected, s.Mode, s.Index, s.ReturnAddressOffset, s.ReturnAddressCount, s.ArgHash, s.Source, len(s.Buffer))
}
