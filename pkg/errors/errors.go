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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNullPointer is returned when the memory reader is asked to read from the zero address
	ErrNullPointer = errors.New("refusing to read from null address")
	// ErrNoTargets signals the targets file path was not given
	ErrNoTargets = errors.New("no targets file specified. Please pass the targets.file option")

	// ErrUnknownFunction is returned when the function name isn't one of the intercepted functions
	ErrUnknownFunction = func(name string) error {
		return fmt.Errorf("%q is not an intercepted function", name)
	}
)

// LoadErrorKind identifies the class of a targets load failure.
type LoadErrorKind uint8

const (
	// IOError denotes the document couldn't be read or the read was short
	IOError LoadErrorKind = iota + 1
	// MalformedDocument denotes the top-level structure is not a sequence of records
	MalformedDocument
	// MalformedRecord denotes a required field is absent or has the wrong type within a record
	MalformedRecord
)

// String returns the kind name.
func (k LoadErrorKind) String() string {
	switch k {
	case IOError:
		return "IOError"
	case MalformedDocument:
		return "MalformedDocument"
	case MalformedRecord:
		return "MalformedRecord"
	default:
		return "Unknown"
	}
}

// ErrLoad is returned when the targets document can't be turned into target specifications.
// Index is the offending record position for MalformedRecord errors, or -1.
type ErrLoad struct {
	Kind  LoadErrorKind
	Path  string
	Index int
	Err   error
}

// Error returns the error message.
func (e *ErrLoad) Error() string {
	var where string
	if e.Path != "" {
		where = " in " + e.Path
	}
	if e.Kind == MalformedRecord && e.Index >= 0 {
		return fmt.Sprintf("%s%s: record #%d: %v", e.Kind, where, e.Index, e.Err)
	}
	return fmt.Sprintf("%s%s: %v", e.Kind, where, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ErrLoad) Unwrap() error { return e.Err }

// NewLoadError builds a load error that isn't bound to a record.
func NewLoadError(kind LoadErrorKind, path string, err error) *ErrLoad {
	return &ErrLoad{Kind: kind, Path: path, Index: -1, Err: err}
}

// IsLoadError returns true if the error, or any error it wraps, is a load error of the given kind.
func IsLoadError(err error, kind LoadErrorKind) bool {
	var e *ErrLoad
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
