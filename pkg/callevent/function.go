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
	"github.com/rabbitstack/sl2/pkg/errors"
)

// Function identifies one of the intercepted data-reading functions.
type Function uint8

const (
	// ReadFile reads data from the file or I/O device
	ReadFile Function = iota
	// Recv receives data from a connected socket
	Recv
	// WinHttpReadData reads data from a handle opened by WinHttpOpenRequest
	WinHttpReadData
	// InternetReadFile reads data from a handle opened by InternetOpenUrl
	InternetReadFile
	// WinHttpWebSocketReceive receives data from a WebSocket
	WinHttpWebSocketReceive
	// RegQueryValueEx retrieves the type and data of a registry value
	RegQueryValueEx
	// ReadEventLog reads entries from the event log
	ReadEventLog
	// Fread reads from the C runtime stream
	Fread
	// FreadS is the bounds checked variant of fread
	FreadS
	// RawRead reads from the C runtime file descriptor
	RawRead
	// MapViewOfFile maps a view of a file mapping into the address space
	MapViewOfFile

	// MaxFunction is the number of intercepted functions
	MaxFunction
)

var names = [MaxFunction]string{
	ReadFile:                "ReadFile",
	Recv:                    "recv",
	WinHttpReadData:         "WinHttpReadData",
	InternetReadFile:        "InternetReadFile",
	WinHttpWebSocketReceive: "WinHttpWebSocketReceive",
	RegQueryValueEx:         "RegQueryValueEx",
	ReadEventLog:            "ReadEventLog",
	Fread:                   "fread",
	FreadS:                  "fread_s",
	RawRead:                 "_read",
	MapViewOfFile:           "MapViewOfFile",
}

// String returns the function name as it appears in target documents.
func (f Function) String() string {
	if f >= MaxFunction {
		return "unknown"
	}
	return names[f]
}

// IsValid determines if the value identifies a known function.
func (f Function) IsValid() bool { return f < MaxFunction }

// ParseFunction resolves the function from its name. Names are matched exactly.
func ParseFunction(name string) (Function, error) {
	for i, n := range names {
		if n == name {
			return Function(i), nil
		}
	}
	return MaxFunction, errors.ErrUnknownFunction(name)
}

// Functions returns all intercepted functions.
func Functions() []Function {
	fns := make([]Function, 0, MaxFunction)
	for f := ReadFile; f < MaxFunction; f++ {
		fns = append(fns, f)
	}
	return fns
}

// FunctionNames returns the names of all intercepted functions.
func FunctionNames() []string {
	return append([]string(nil), names[:]...)
}
