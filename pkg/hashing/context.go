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

package hashing

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

const (
	// MaxPath is the capacity of the file name field in UTF-16 code units.
	MaxPath = 260
	// ContextSize is the size in bytes of the marshaled hash context.
	ContextSize = MaxPath*2 + 3*8
)

// Context is the fixed-size metadata blob the argument hash is computed over.
// Which fields are populated depends on the intercepted function. FileName holds
// either the normalized path of the resource, or a numeric identifier such as a
// file descriptor or a socket stored in the first code unit. Position, ReadSize
// and Count carry the stream offset, the requested size and the element count of
// block-read style functions respectively.
type Context struct {
	FileName [MaxPath]uint16
	Position uint64
	ReadSize uint64
	Count    uint64
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// SetFileName stores the UTF-16 form of the path. Paths longer than MaxPath-1
// code units are truncated so the field always keeps a terminating NUL.
func (c *Context) SetFileName(name string) error {
	c.FileName = [MaxPath]uint16{}
	b, err := utf16le.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return fmt.Errorf("couldn't encode %q file name: %v", name, err)
	}
	for i := 0; i+1 < len(b) && i/2 < MaxPath-1; i += 2 {
		c.FileName[i/2] = binary.LittleEndian.Uint16(b[i:])
	}
	return nil
}

// SetWideFileName copies the NUL-terminated wide path as produced by
// GetFinalPathNameByHandle. Extra code units are dropped.
func (c *Context) SetWideFileName(p []uint16) {
	c.FileName = [MaxPath]uint16{}
	for i := 0; i < len(p) && i < MaxPath-1; i++ {
		if p[i] == 0 {
			break
		}
		c.FileName[i] = p[i]
	}
}

// SetIdentifier stores a numeric resource identifier (fd, socket) in the
// file name field. The value is narrowed to a single UTF-16 code unit.
func (c *Context) SetIdentifier(id uint64) {
	c.FileName = [MaxPath]uint16{}
	c.FileName[0] = uint16(id)
}

// AppendBinary appends the little-endian wire form of the context to dst.
func (c *Context) AppendBinary(dst []byte) []byte {
	for _, u := range c.FileName {
		dst = binary.LittleEndian.AppendUint16(dst, u)
	}
	dst = binary.LittleEndian.AppendUint64(dst, c.Position)
	dst = binary.LittleEndian.AppendUint64(dst, c.ReadSize)
	dst = binary.LittleEndian.AppendUint64(dst, c.Count)
	return dst
}

// MarshalBinary returns the ContextSize bytes blob.
func (c *Context) MarshalBinary() ([]byte, error) {
	return c.AppendBinary(make([]byte, 0, ContextSize)), nil
}
