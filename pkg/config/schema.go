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

var schema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"config-file":	{"type": "string"},
		"targets": {
			"type": "object",
			"properties": {
				"file":		{"type": "string", "minLength": 1}
			},
			"additionalProperties": false
		},
		"match": {
			"type": "object",
			"properties": {
				"aslr-mask":			{"type": ["integer", "string"], "minimum": 1, "pattern": "^(0[xX][0-9a-fA-F]+|[0-9]+)$"},
				"strict-buffer-bounds":	{"type": "boolean"}
			},
			"additionalProperties": false
		},
		"hash": {
			"type": "object",
			"properties": {
				"cache-size":	{"type": "integer", "minimum": 0}
			},
			"additionalProperties": false
		},
		"session": {
			"type": "object",
			"properties": {
				"module-base":	{"type": ["integer", "string"], "minimum": 0, "pattern": "^(0[xX][0-9a-fA-F]+|[0-9]+)$"}
			},
			"additionalProperties": false
		},
		"replay": {
			"type": "object",
			"properties": {
				"trace":	{"type": "string"}
			},
			"additionalProperties": false
		},
		"logging": {
			"type": "object",
			"properties": {
				"level": 		{"type": "string", "enum": ["debug", "info", "warn", "warning", "error", "fatal", "panic", "trace", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL", "PANIC", "TRACE"]},
				"max-age":		{"type": "integer", "minimum": 0},
				"max-backups":	{"type": "integer", "minimum": 0},
				"max-size":		{"type": "integer", "minimum": 1},
				"formatter":	{"type": "string", "enum": ["json", "text"]},
				"path":			{"type": "string"},
				"log-stdout":	{"type": "boolean"}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}
`
