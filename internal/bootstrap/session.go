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
	"github.com/rabbitstack/sl2/pkg/config"
	errs "github.com/rabbitstack/sl2/pkg/errors"
	"github.com/rabbitstack/sl2/pkg/memory"
	"github.com/rabbitstack/sl2/pkg/session"
	"github.com/rabbitstack/sl2/pkg/target"
	log "github.com/sirupsen/logrus"
)

// LoadTargets loads the targets document named in the config and lints it.
// Lint findings are logged, they never fail the load.
func LoadTargets(cfg *config.Config) ([]target.Spec, error) {
	if cfg.TargetsFile == "" {
		return nil, errs.ErrNoTargets
	}
	specs, err := target.Load(cfg.TargetsFile)
	if err != nil {
		return nil, err
	}
	for _, issue := range target.Validate(specs) {
		if issue.Severity == target.Error {
			log.Errorf("%s: %s", cfg.TargetsFile, issue)
		} else {
			log.Warnf("%s: %s", cfg.TargetsFile, issue)
		}
	}
	return specs, nil
}

// NewSession creates the session over the specs with the tunables from the config.
func NewSession(cfg *config.Config, specs []target.Spec, mem memory.Reader) *session.Session {
	return session.New(specs, mem, session.Config{
		ModuleBase:         cfg.ModuleBase,
		HashCacheSize:      cfg.Hash.CacheSize,
		ASLRMask:           cfg.Match.ASLRMask,
		StrictBufferBounds: cfg.Match.StrictBufferBounds,
	})
}
