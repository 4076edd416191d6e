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

package callevent

import (
	"fmt"
	"strings"
)

// Event describes a single intercepted call as produced by the per-function
// wrappers. Events are read-only once handed to the matching engine.
type Event struct {
	// Function is the intercepted function.
	Function Function
	// Handle is the opaque file, socket, registry or mapping handle. Zero when absent.
	Handle uint64
	// BufferAddr is the address of the destination buffer in the target address space.
	BufferAddr uintptr
	// RequestedLength is the number of bytes the call was asked to read.
	RequestedLength uint64
	// BytesRead is the number of bytes actually transferred. It is nil for calls without
	// length feedback or when the value isn't available yet.
	BytesRead *uint32
	// Position is the byte offset within the source when known, otherwise zero.
	Position uint64
	// ReturnAddressOffset is the call site return address relative to the module base.
	ReturnAddressOffset uint64
	// SourcePath is the normalized path of the backing file, or empty if unresolved.
	SourcePath string
	// ArgHash is the argument hash of the call metadata.
	ArgHash string
}

// HasSource determines whether the backing file path was resolved.
func (e *Event) HasSource() bool { return e.SourcePath != "" }

// String returns the human-readable event representation.
func (e *Event) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(handle=0x%x buffer=0x%x len=%d", e.Function, e.Handle, e.BufferAddr, e.RequestedLength)
	if e.BytesRead != nil {
		fmt.Fprintf(&sb, " read=%d", *e.BytesRead)
	}
	fmt.Fprintf(&sb, " pos=%d) ret=+0x%x", e.Position, e.ReturnAddressOffset)
	if e.SourcePath != "" {
		fmt.Fprintf(&sb, " source=%s", e.SourcePath)
	}
	if e.ArgHash != "" {
		fmt.Fprintf(&sb, " hash=%s", e.ArgHash)
	}
	return sb.String()
}
