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

package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/rabbitstack/sl2/pkg/config"
	errs "github.com/rabbitstack/sl2/pkg/errors"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/target"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTargetsAndSession(t *testing.T) {
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.msgpack")

	spec := target.NewSpec()
	spec.Selected = true
	spec.FunctionName = "ReadFile"
	spec.Index = 1
	require.NoError(t, target.Save(path, []target.Spec{spec}))

	cfg := config.NewWithOpts(config.WithTargets())
	cmd := &cobra.Command{}
	cfg.MustViperize(cmd)
	require.NoError(t, cmd.PersistentFlags().Set("targets.file", path))
	require.NoError(t, cmd.PersistentFlags().Set("logging.path", dir))
	require.NoError(t, InitConfigAndLogger(cfg))

	specs, err := LoadTargets(cfg)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	s := NewSession(cfg, specs, memory.NewMap())
	assert.Equal(t, uint64(0xffff), s.Engine().Mask())
}

func TestLoadTargetsMissingFile(t *testing.T) {
	cfg := config.NewWithOpts(config.WithTargets())
	cmd := &cobra.Command{}
	cfg.MustViperize(cmd)
	require.NoError(t, cmd.PersistentFlags().Set("targets.file", ""))
	require.NoError(t, cfg.Init())

	_, err := LoadTargets(cfg)
	assert.ErrorIs(t, err, errs.ErrNoTargets)

	require.NoError(t, cmd.PersistentFlags().Set("targets.file", filepath.Join(t.TempDir(), "none.msgpack")))
	require.NoError(t, cfg.Init())
	_, err = LoadTargets(cfg)
	assert.True(t, errs.IsLoadError(err, errs.IOError))
}
