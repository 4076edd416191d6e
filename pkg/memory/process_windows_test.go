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
	"unsafe"

	errs "github.com/rabbitstack/sl2/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentProcessRead(t *testing.T) {
	p := CurrentProcess()
	defer p.Close()

	buf := []byte("sl2 buffer")
	b, err := p.Read(uintptr(unsafe.Pointer(&buf[0])), 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("sl2"), b)

	_, err = p.Read(0, 3)
	assert.ErrorIs(t, err, errs.ErrNullPointer)
}
