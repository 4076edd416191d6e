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

package memory

import (
	"expvar"
	"fmt"

	"github.com/pkg/errors"
	errs "github.com/rabbitstack/sl2/pkg/errors"
	"golang.org/x/sys/windows"
)

var processReadErrors = expvar.NewInt("memory.process.read.errors")

// Process reads the virtual memory of another process through
// ReadProcessMemory. Partial copies are treated as failures.
type Process struct {
	pid    uint32
	handle windows.Handle
}

// OpenProcess opens the process with the access rights required for reading its memory.
func OpenProcess(pid uint32) (*Process, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_VM_READ|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open process %d", pid)
	}
	return &Process{pid: pid, handle: handle}, nil
}

// CurrentProcess returns the reader over the address space of the running process.
func CurrentProcess() *Process {
	return &Process{pid: windows.GetCurrentProcessId(), handle: windows.CurrentProcess()}
}

// Read copies size bytes at the address.
func (p *Process) Read(addr uintptr, size int) ([]byte, error) {
	if addr == 0 {
		return nil, errs.ErrNullPointer
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid read size %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	var n uintptr
	err := windows.ReadProcessMemory(p.handle, addr, &buf[0], uintptr(size), &n)
	if err != nil {
		processReadErrors.Add(1)
		return nil, errors.Wrapf(err, "couldn't read %d bytes at 0x%x in process %d", size, addr, p.pid)
	}
	if n != uintptr(size) {
		processReadErrors.Add(1)
		return nil, fmt.Errorf("partial read of %d/%d bytes at 0x%x in process %d", n, size, addr, p.pid)
	}
	return buf, nil
}

// Close releases the process handle.
func (p *Process) Close() error {
	if p.handle == windows.CurrentProcess() {
		return nil
	}
	return windows.Close(p.handle)
}
