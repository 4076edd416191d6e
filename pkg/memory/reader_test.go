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
	"testing"

	errs "github.com/rabbitstack/sl2/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRead(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Add(0x2000, []byte{0xa, 0xb, 0xc, 0xd}))
	require.NoError(t, m.Add(0x1000, []byte("MZ\x90\x00")))
	assert.Equal(t, 2, m.Len())

	var tests = []struct {
		addr uintptr
		size int
		want []byte
		err  bool
	}{
		{0x1000, 2, []byte("MZ"), false},
		{0x2001, 3, []byte{0xb, 0xc, 0xd}, false},
		{0x2002, 0, []byte{}, false},
		{0x2002, 3, nil, true},
		{0x1004, 1, nil, true},
		{0x0fff, 1, nil, true},
		{0x3000, 1, nil, true},
	}

	for _, tt := range tests {
		b, err := m.Read(tt.addr, tt.size)
		if tt.err {
			assert.Error(t, err, "0x%x", tt.addr)
			continue
		}
		require.NoError(t, err, "0x%x", tt.addr)
		assert.Equal(t, tt.want, b)
	}
}

func TestMapNullAddress(t *testing.T) {
	m := NewMap()
	_, err := m.Read(0, 4)
	assert.ErrorIs(t, err, errs.ErrNullPointer)
	assert.ErrorIs(t, m.Add(0, []byte{1}), errs.ErrNullPointer)
}

func TestMapOverlap(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Add(0x1000, make([]byte, 0x100)))
	assert.Error(t, m.Add(0x10ff, []byte{1}))
	assert.Error(t, m.Add(0x0f00, make([]byte, 0x101)))
	assert.Error(t, m.Add(0x2000, nil))
	require.NoError(t, m.Add(0x1100, []byte{1}))
}

func TestMapReadReturnsCopy(t *testing.T) {
	m := NewMap()
	data := []byte{1, 2, 3}
	require.NoError(t, m.Add(0x1000, data))
	data[0] = 0xff

	b, err := m.Read(0x1000, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	b[1] = 0xff

	b, err = m.Read(0x1000, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}
