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
	"github.com/rabbitstack/sl2/pkg/hashing"
	"github.com/rabbitstack/sl2/pkg/util/utf16"
)

// Builder turns the raw call arguments captured by the host hooks into call
// events. It computes the function-specific hash context and derives the
// return address offset from the base address of the instrumented module.
// Builder is safe for concurrent use.
type Builder struct {
	hasher *hashing.Hasher
	base   uint64
}

// NewBuilder creates an event builder for the module loaded at base.
func NewBuilder(hasher *hashing.Hasher, base uint64) *Builder {
	return &Builder{hasher: hasher, base: base}
}

// ModuleBase returns the load address of the instrumented module.
func (b *Builder) ModuleBase() uint64 { return b.base }

// Hash computes the argument hash of the hash context.
func (b *Builder) Hash(ctx *hashing.Context) string { return b.hasher.Sum(ctx) }

func (b *Builder) event(fn Function, retAddr uint64) *Event {
	return &Event{Function: fn, ReturnAddressOffset: retAddr - b.base}
}

// ReadFileArgs are the ReadFile arguments along with the file
// pointer and the normalized path resolved from the handle.
type ReadFileArgs struct {
	Handle              uint64
	Buffer              uintptr
	NumberOfBytesToRead uint32
	NumberOfBytesRead   *uint32
	FilePointer         uint64
	Path                []uint16
	ReturnAddress       uint64
}

// ReadFile builds the event for the ReadFile call.
func (b *Builder) ReadFile(args ReadFileArgs) *Event {
	var ctx hashing.Context
	ctx.SetWideFileName(args.Path)
	ctx.Position = args.FilePointer
	ctx.ReadSize = uint64(args.NumberOfBytesToRead)

	e := b.event(ReadFile, args.ReturnAddress)
	e.Handle = args.Handle
	e.BufferAddr = args.Buffer
	e.RequestedLength = uint64(args.NumberOfBytesToRead)
	e.BytesRead = args.NumberOfBytesRead
	e.Position = args.FilePointer
	e.SourcePath = utf16.Decode(args.Path)
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// ReadEventLogArgs are the ReadEventLog arguments and the path resolved from the log handle.
type ReadEventLogArgs struct {
	EventLog            uint64
	ReadFlags           uint32
	RecordOffset        uint32
	Buffer              uintptr
	NumberOfBytesToRead uint32
	BytesRead           *uint32
	Path                []uint16
	ReturnAddress       uint64
}

// ReadEventLog builds the event for the ReadEventLog call. The log path
// only contributes to the hash, the event itself carries no source.
func (b *Builder) ReadEventLog(args ReadEventLogArgs) *Event {
	var ctx hashing.Context
	ctx.SetWideFileName(args.Path)
	ctx.Position = uint64(args.RecordOffset)
	ctx.ReadSize = uint64(args.NumberOfBytesToRead)

	e := b.event(ReadEventLog, args.ReturnAddress)
	e.Handle = args.EventLog
	e.BufferAddr = args.Buffer
	e.RequestedLength = uint64(args.NumberOfBytesToRead)
	e.BytesRead = args.BytesRead
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// RegQueryValueExArgs are the RegQueryValueEx arguments. CbData points to
// the in/out data size which the call updates with the transferred size.
type RegQueryValueExArgs struct {
	Key           uint64
	ValueName     string
	Data          uintptr
	CbData        *uint32
	ReturnAddress uint64
}

// RegQueryValueEx builds the event for the RegQueryValueEx call. Calls
// that only query the value type or size carry no data to fuzz and
// yield no event.
func (b *Builder) RegQueryValueEx(args RegQueryValueExArgs) (*Event, bool) {
	if args.Data == 0 || args.CbData == nil {
		return nil, false
	}
	var ctx hashing.Context
	ctx.ReadSize = uint64(*args.CbData)

	e := b.event(RegQueryValueEx, args.ReturnAddress)
	e.Handle = args.Key
	e.BufferAddr = args.Data
	e.RequestedLength = uint64(*args.CbData)
	e.BytesRead = args.CbData
	e.ArgHash = b.hasher.Sum(&ctx)
	return e, true
}

// InternetReadArgs are the arguments shared by the WinHTTP and WinINet read functions.
type InternetReadArgs struct {
	Handle              uint64
	Buffer              uintptr
	NumberOfBytesToRead uint32
	NumberOfBytesRead   *uint32
	ReturnAddress       uint64
}

// WinHttpReadData builds the event for the WinHttpReadData call.
func (b *Builder) WinHttpReadData(args InternetReadArgs) *Event {
	return b.internetRead(WinHttpReadData, args)
}

// InternetReadFile builds the event for the InternetReadFile call.
func (b *Builder) InternetReadFile(args InternetReadArgs) *Event {
	return b.internetRead(InternetReadFile, args)
}

// WinHttpWebSocketReceive builds the event for the WinHttpWebSocketReceive call.
func (b *Builder) WinHttpWebSocketReceive(args InternetReadArgs) *Event {
	return b.internetRead(WinHttpWebSocketReceive, args)
}

func (b *Builder) internetRead(fn Function, args InternetReadArgs) *Event {
	var ctx hashing.Context
	ctx.ReadSize = uint64(args.NumberOfBytesToRead)

	e := b.event(fn, args.ReturnAddress)
	e.Handle = args.Handle
	e.BufferAddr = args.Buffer
	e.RequestedLength = uint64(args.NumberOfBytesToRead)
	e.BytesRead = args.NumberOfBytesRead
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// RecvArgs are the recv arguments.
type RecvArgs struct {
	Socket        uint64
	Buffer        uintptr
	Len           int32
	Flags         int32
	ReturnAddress uint64
}

// Recv builds the event for the recv call. The socket stands in for the
// file name in the hash context. recv has no out parameter for the
// transferred size.
func (b *Builder) Recv(args RecvArgs) *Event {
	var ctx hashing.Context
	ctx.SetIdentifier(args.Socket)
	ctx.ReadSize = uint64(args.Len)

	e := b.event(Recv, args.ReturnAddress)
	e.Handle = args.Socket
	e.BufferAddr = args.Buffer
	e.RequestedLength = uint64(args.Len)
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// FreadArgs are the fread arguments. Fd is the descriptor backing the stream.
type FreadArgs struct {
	Buffer        uintptr
	Size          uint64
	Count         uint64
	Fd            int32
	ReturnAddress uint64
}

// Fread builds the event for the fread call.
func (b *Builder) Fread(args FreadArgs) *Event {
	var ctx hashing.Context
	ctx.SetIdentifier(uint64(args.Fd))
	ctx.ReadSize = args.Size
	ctx.Count = args.Count

	e := b.event(Fread, args.ReturnAddress)
	e.BufferAddr = args.Buffer
	e.RequestedLength = args.Size * args.Count
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// FreadSArgs are the fread_s arguments.
type FreadSArgs struct {
	Buffer        uintptr
	BufferSize    uint64
	Size          uint64
	Count         uint64
	Fd            int32
	ReturnAddress uint64
}

// FreadS builds the event for the fread_s call. The destination
// buffer size is hashed in the position slot.
func (b *Builder) FreadS(args FreadSArgs) *Event {
	var ctx hashing.Context
	ctx.SetIdentifier(uint64(args.Fd))
	ctx.Position = args.BufferSize
	ctx.ReadSize = args.Size
	ctx.Count = args.Count

	e := b.event(FreadS, args.ReturnAddress)
	e.BufferAddr = args.Buffer
	e.RequestedLength = args.Size * args.Count
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// RawReadArgs are the _read arguments.
type RawReadArgs struct {
	Fd            int32
	Buffer        uintptr
	Count         uint32
	ReturnAddress uint64
}

// RawRead builds the event for the _read call.
func (b *Builder) RawRead(args RawReadArgs) *Event {
	var ctx hashing.Context
	ctx.SetIdentifier(uint64(args.Fd))
	ctx.Count = uint64(args.Count)

	e := b.event(RawRead, args.ReturnAddress)
	e.BufferAddr = args.Buffer
	e.RequestedLength = uint64(args.Count)
	e.ArgHash = b.hasher.Sum(&ctx)
	return e
}

// MapViewOfFileArgs are the MapViewOfFile arguments.
type MapViewOfFileArgs struct {
	FileMappingObject  uint64
	DesiredAccess      uint32
	FileOffsetHigh     uint32
	FileOffsetLow      uint32
	NumberOfBytesToMap uint64
	ReturnAddress      uint64
}

// MapViewOfFile builds the pre-call event for MapViewOfFile. The view
// address is unknown until the call returns, so neither the buffer nor
// the argument hash are set. A zero NumberOfBytesToMap maps the whole
// file and is resolved by the host once the view exists. See
// MapViewOfFilePost.
func (b *Builder) MapViewOfFile(args MapViewOfFileArgs) *Event {
	e := b.event(MapViewOfFile, args.ReturnAddress)
	e.Handle = args.FileMappingObject
	e.RequestedLength = args.NumberOfBytesToMap
	e.Position = uint64(args.FileOffsetHigh)<<32 | uint64(args.FileOffsetLow)
	return e
}

// MapViewOfFilePost completes the MapViewOfFile event with the mapped
// view address and its size.
func (b *Builder) MapViewOfFilePost(e *Event, view uintptr, size uint64) {
	var ctx hashing.Context
	ctx.Position = e.Position
	ctx.ReadSize = size

	e.BufferAddr = view
	e.RequestedLength = size
	e.ArgHash = b.hasher.Sum(&ctx)
}

const (
	fileMapCopy      = 0x0001
	fileMapWrite     = 0x0002
	fileMapExecute   = 0x0020
	fileMapAllAccess = 0xf001f
)

// CopyOnWriteAccess rewrites MapViewOfFile access requests carrying any
// bit of FILE_MAP_ALL_ACCESS or FILE_MAP_WRITE into copy-on-write requests.
// Read-only views become writable private copies, so mutated data can be
// written into them without reaching the original input. The execute right
// is preserved.
// It returns the access mask to pass to the call and whether it was changed.
func CopyOnWriteAccess(access uint32) (uint32, bool) {
	if access&(fileMapAllAccess|fileMapWrite) == 0 {
		return access, false
	}
	return fileMapCopy | access&fileMapExecute, true
}
