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

package target

import (
	"bytes"
	"expvar"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	errs "github.com/rabbitstack/sl2/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

const bufferKey = "buffer"

var (
	loadedSpecs = expvar.NewInt("target.loaded.specs")
	loadErrors  = expvar.NewMap("target.load.errors")
)

// Load reads the targets document from the file and decodes the target specs.
// The document is read in one go and it is decoded all-or-nothing: a single
// malformed record fails the whole load, so callers either get the complete
// list or a typed *errors.ErrLoad.
func Load(path string) ([]Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fail(errs.NewLoadError(errs.IOError, path, errors.Wrap(err, "couldn't open targets file")))
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fail(errs.NewLoadError(errs.IOError, path, errors.Wrap(err, "couldn't stat targets file")))
	}
	specs, err := Read(f, fi.Size())
	if err != nil {
		if e, ok := err.(*errs.ErrLoad); ok {
			e.Path = path
		}
		return nil, err
	}
	log.Infof("loaded %d target spec(s) from %s", len(specs), path)
	return specs, nil
}

// Read reads the document of the given reported size from the reader. Reading
// fewer bytes than reported is an I/O error.
func Read(r io.Reader, size int64) ([]Spec, error) {
	if size < 0 {
		return nil, fail(errs.NewLoadError(errs.IOError, "", fmt.Errorf("invalid document size %d", size)))
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if int64(n) != size {
		return nil, fail(errs.NewLoadError(errs.IOError, "", fmt.Errorf("read %d bytes out of %d: %v", n, size, err)))
	}
	return Decode(buf)
}

// Decode decodes the MessagePack targets document. The top level must be an
// array of maps. Keys absent from a record take the fallback values of NewSpec,
// except the buffer which is required.
func Decode(b []byte) ([]Spec, error) {
	rd := bytes.NewReader(b)
	dec := msgpack.NewDecoder(rd)
	dec.UseLooseInterfaceDecoding(true)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fail(errs.NewLoadError(errs.MalformedDocument, "", errors.Wrap(err, "top-level value is not an array")))
	}
	if n < 0 {
		return nil, fail(errs.NewLoadError(errs.MalformedDocument, "", errors.New("top-level value is nil")))
	}

	specs := make([]Spec, 0, n)
	for i := 0; i < n; i++ {
		v, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return nil, fail(recordError(i, err))
		}
		spec, err := decodeRecord(v)
		if err != nil {
			return nil, fail(recordError(i, err))
		}
		specs = append(specs, spec)
	}
	if rd.Len() > 0 {
		return nil, fail(errs.NewLoadError(errs.MalformedDocument, "", fmt.Errorf("%d trailing bytes after the targets array", rd.Len())))
	}
	loadedSpecs.Add(int64(len(specs)))
	return specs, nil
}

func decodeRecord(v interface{}) (Spec, error) {
	rec, ok := v.(map[string]interface{})
	if !ok {
		return Spec{}, fmt.Errorf("expected map, got %T", v)
	}
	raw, ok := rec[bufferKey]
	if !ok {
		return Spec{}, errors.New("missing required buffer field")
	}
	buf, err := toBytes(raw)
	if err != nil {
		return Spec{}, err
	}
	delete(rec, bufferKey)

	spec := NewSpec()
	if err := decode(rec, &spec); err != nil {
		return Spec{}, err
	}
	spec.Buffer = buf
	return spec, nil
}

// decode overwrites only the fields whose keys are present in the
// record, so the preset fallback values survive for absent keys.
func decode(input map[string]interface{}, output *Spec) error {
	var decoderConfig = &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           output,
		TagName:          "msgpack",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// toBytes accepts the buffer either as binary or as an array of byte values.
func toBytes(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return append([]byte{}, b...), nil
	case []interface{}:
		buf := make([]byte, len(b))
		for i, e := range b {
			n, ok := toByte(e)
			if !ok {
				return nil, fmt.Errorf("buffer[%d]: %v is not a byte", i, e)
			}
			buf[i] = n
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("buffer: expected binary or byte array, got %T", v)
	}
}

func toByte(v interface{}) (byte, bool) {
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case int32:
		n = int64(x)
	case int16:
		n = int64(x)
	case int8:
		n = int64(x)
	case uint64:
		if x > 0xff {
			return 0, false
		}
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint8:
		n = int64(x)
	default:
		return 0, false
	}
	if n < 0 || n > 0xff {
		return 0, false
	}
	return byte(n), true
}

func recordError(i int, err error) *errs.ErrLoad {
	return &errs.ErrLoad{Kind: errs.MalformedRecord, Index: i, Err: err}
}

func fail(err *errs.ErrLoad) *errs.ErrLoad {
	loadErrors.Add(err.Kind.String(), 1)
	return err
}

// Encode serializes the specs to the MessagePack targets document.
func Encode(specs []Spec) ([]byte, error) {
	out := make([]Spec, len(specs))
	copy(out, specs)
	for i := range out {
		// nil buffers would encode as nil, which is not a valid buffer
		if out[i].Buffer == nil {
			out[i].Buffer = []byte{}
		}
	}
	return msgpack.Marshal(out)
}

// Save writes the targets document to the file.
func Save(path string, specs []Spec) error {
	b, err := Encode(specs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
