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

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFromConfig(t *testing.T) {
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	dir := t.TempDir()

	require.Error(t, InitFromConfig(Config{Path: dir}, "sl2.log"))
	require.NoError(t, InitFromConfig(Config{Path: dir, Level: "info", Formatter: "text", MaxSize: 10}, "sl2.log"))

	logrus.Info("sl2 initialized")

	b, err := os.ReadFile(filepath.Join(dir, "sl2.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "sl2 initialized")
}

func TestInitFromConfigFallsBackToFileHook(t *testing.T) {
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	dir := t.TempDir()

	require.NoError(t, InitFromConfig(Config{Path: dir, Level: "warn", MaxBackups: -1}, "fallback.log"))
	logrus.Error("rotation disabled")

	b, err := os.ReadFile(filepath.Join(dir, "fallback.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "rotation disabled")
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "logs", filepath.Base(DefaultPath()))
}
