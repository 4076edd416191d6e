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

package atomic

import atom "sync/atomic"

// Uint64 provides an atomic uint64 counter. The value must stay
// the first field to keep 64-bit alignment on 32-bit platforms.
type Uint64 struct{ value uint64 }

func NewUint64(v uint64) *Uint64  { return &Uint64{v} }
func (u *Uint64) Load() uint64   { return atom.LoadUint64(&u.value) }
func (u *Uint64) Store(v uint64) { atom.StoreUint64(&u.value, v) }

// Inc bumps the counter by one and returns the new value.
func (u *Uint64) Inc() uint64 { return atom.AddUint64(&u.value, 1) }
