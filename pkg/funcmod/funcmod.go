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

// Package funcmod maps the intercepted functions to the modules they are
// expected to be exported from. Hooks are only installed on exports found in
// these modules, so forwarders in KERNEL32.DLL or ADVAPI32.DLL are not
// instrumented twice.
package funcmod

import (
	"sort"
	"strings"

	"github.com/rabbitstack/sl2/pkg/callevent"
)

// Entry pairs the exported function name with the module exporting it.
type Entry struct {
	Function string
	Module   string
}

var crt = []string{"UCRTBASE.DLL", "UCRTBASED.DLL", "MSVCRT.DLL", "MSVCRTD.DLL"}

var table = []Entry{
	{"ReadFile", "KERNELBASE.DLL"},
	{"recv", "WS2_32.DLL"},
	{"WinHttpReadData", "WINHTTP.DLL"},
	{"InternetReadFile", "WININET.DLL"},
	{"WinHttpWebSocketReceive", "WINHTTP.DLL"},
	{"RegQueryValueExA", "KERNELBASE.DLL"},
	{"RegQueryValueExW", "KERNELBASE.DLL"},
	{"ReadEventLogA", "KERNELBASE.DLL"},
	{"ReadEventLogW", "KERNELBASE.DLL"},
	{"fread", crt[0]}, {"fread", crt[1]}, {"fread", crt[2]}, {"fread", crt[3]},
	{"fread_s", crt[0]}, {"fread_s", crt[1]}, {"fread_s", crt[2]}, {"fread_s", crt[3]},
	{"_read", crt[0]}, {"_read", crt[1]}, {"_read", crt[2]}, {"_read", crt[3]},
	{"MapViewOfFile", "KERNELBASE.DLL"},
}

// Table returns a copy of the function to module table.
func Table() []Entry {
	return append([]Entry(nil), table...)
}

// IsExpectedModule determines if the function is expected to be exported by
// the module. Function names are compared exactly while module names ignore
// the case, since the loader reports them in whatever case they were linked.
func IsExpectedModule(fn, module string) bool {
	for _, e := range table {
		if e.Function == fn && strings.EqualFold(e.Module, module) {
			return true
		}
	}
	return false
}

// Modules returns the modules expected to export the function.
func Modules(fn string) []string {
	mods := make([]string, 0)
	for _, e := range table {
		if e.Function == fn {
			mods = append(mods, e.Module)
		}
	}
	return mods
}

// Exports returns the export names that implement the intercepted function.
// The registry and event log functions have ANSI and wide variants.
func Exports(f callevent.Function) []string {
	switch f {
	case callevent.RegQueryValueEx, callevent.ReadEventLog:
		return []string{f.String() + "A", f.String() + "W"}
	}
	if !f.IsValid() {
		return nil
	}
	return []string{f.String()}
}

// Function resolves the intercepted function from the export name.
func Function(export string) (callevent.Function, bool) {
	for _, f := range callevent.Functions() {
		for _, name := range Exports(f) {
			if name == export {
				return f, true
			}
		}
	}
	return callevent.MaxFunction, false
}

// ModuleNames returns the distinct module names in the table.
func ModuleNames() []string {
	seen := make(map[string]struct{})
	for _, e := range table {
		seen[e.Module] = struct{}{}
	}
	mods := make([]string, 0, len(seen))
	for m := range seen {
		mods = append(mods, m)
	}
	sort.Strings(mods)
	return mods
}
