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

package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValidate(t *testing.T) {
	var tests = []struct {
		text  string
		valid bool
		errs  int
	}{
		{text: `match:
                 aslr-mask: 0xffff
                 strict-buffer-bounds: true`, valid: true},
		{text: `match:
                 aslr-mask: 0
                 strict-buffer-bounds: true`, valid: false, errs: 1},
		{text: `match:
                 aslr-mak: 0xffff
                 strict-buffer-bounds: "yes"`, valid: false, errs: 2},
		{text: `targets:
                 file: targets.msgpack
                hash:
                 cache-size: 0`, valid: true},
		{text: `hash:
                 cache-size: -1`, valid: false, errs: 1},
		{text: `logging:
                 level: info
                 formatter: xml
                 max-size: 0`, valid: false, errs: 2},
		{text: `session:
                 module-base: "0x7ff600000000"`, valid: true},
		{text: `kstream:
                 enabled: true`, valid: false, errs: 1},
	}

	for i, tt := range tests {
		var m interface{}
		err := yaml.Unmarshal([]byte(tt.text), &m)
		if err != nil {
			t.Fatal(err)
		}
		valid, errs := validate(m)
		if valid != tt.valid {
			t.Errorf("%d. valid mismatch: text=%q exp=%#v got=%#v errs=%#v", i, tt.text, tt.valid, valid, errs)
		} else if len(errs) != tt.errs {
			t.Errorf("%d. error count mismatch: text=%q exp=%#v got=%#v errs=%#v", i, tt.text, tt.errs, len(errs), errs)
		}
	}
}

func TestStringifyKeys(t *testing.T) {
	_, err := stringifyKeys(map[interface{}]interface{}{"match": map[interface{}]interface{}{1: "x"}}, "")
	if err == nil {
		t.Fatal("expected non-string key error")
	}
}
