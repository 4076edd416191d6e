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

package funcmod

import (
	"expvar"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	peparser "github.com/saferwall/pe"
	peparserlog "github.com/saferwall/pe/log"
	log "github.com/sirupsen/logrus"
)

var parserWarnings = expvar.NewMap("funcmod.pe.parser.warnings")

// Export describes an intercepted function found in the module export directory.
type Export struct {
	// Name is the exported symbol name.
	Name string
	// RVA is the relative address of the function, or of the forwarder string.
	RVA uint32
	// Forwarder is the target of the forwarded export, if any.
	Forwarder string
	// Expected tells whether the table expects the function in this module.
	Expected bool
}

// Report is the result of inspecting the module.
type Report struct {
	// Module is the file name of the module in upper case, as the loader reports it.
	Module string
	// Name is the module name recorded in the export directory.
	Name string
	// Exports are the intercepted functions the module exports.
	Exports []Export
}

// Missing returns the table functions expected in this module that it doesn't export.
func (r *Report) Missing() []string {
	found := make(map[string]bool)
	for _, e := range r.Exports {
		found[e.Name] = true
	}
	missing := make([]string, 0)
	for _, e := range table {
		if IsExpectedModule(e.Function, r.Module) && !found[e.Function] {
			missing = append(missing, e.Function)
		}
	}
	return missing
}

// Logger routes PE parser logs to logrus.
type Logger struct{}

func (l Logger) Log(level peparserlog.Level, keyvals ...interface{}) error {
	if len(keyvals) < 2 {
		return nil
	}
	switch level {
	case peparserlog.LevelDebug:
		log.Debug(keyvals[1:]...)
	case peparserlog.LevelWarn:
		parserWarnings.Add(fmt.Sprintf("%s", keyvals[1:]), 1)
	case peparserlog.LevelError, peparserlog.LevelFatal:
		log.Error(keyvals[1:]...)
	default:
		log.Info(keyvals[1:]...)
	}
	return nil
}

func parserOpts() *peparser.Options {
	return &peparser.Options{
		DisableCertValidation:     true,
		OmitIATDirectory:          true,
		OmitSecurityDirectory:     true,
		OmitExceptionDirectory:    true,
		OmitTLSDirectory:          true,
		OmitCLRHeaderDirectory:    true,
		OmitCLRMetadata:           true,
		OmitDelayImportDirectory:  true,
		OmitBoundImportDirectory:  true,
		OmitArchitectureDirectory: true,
		OmitDebugDirectory:        true,
		OmitRelocDirectory:        true,
		OmitResourceDirectory:     true,
		OmitImportDirectory:       true,
		OmitLoadConfigDirectory:   true,
		OmitGlobalPtrDirectory:    true,
		Logger:                    &Logger{},
	}
}

// Inspect parses the export directory of the module and reports which of the
// intercepted functions it exports.
func Inspect(path string) (*Report, error) {
	pe, err := peparser.New(path, parserOpts())
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s", path)
	}
	defer pe.Close()
	return inspect(pe, filepath.Base(path))
}

// InspectBytes is like Inspect but parses the module image from memory.
func InspectBytes(module string, data []byte) (*Report, error) {
	pe, err := peparser.NewBytes(data, parserOpts())
	if err != nil {
		return nil, err
	}
	defer pe.Close()
	return inspect(pe, module)
}

func inspect(pe *peparser.File, module string) (*Report, error) {
	if err := pe.ParseDOSHeader(); err != nil {
		return nil, errors.Wrap(err, "invalid DOS header")
	}
	if err := pe.ParseNTHeader(); err != nil {
		return nil, errors.Wrap(err, "invalid NT header")
	}
	if err := pe.ParseSectionHeader(); err != nil {
		return nil, errors.Wrap(err, "invalid section header")
	}
	if err := pe.ParseDataDirectories(); err != nil {
		return nil, errors.Wrap(err, "couldn't parse data directories")
	}

	r := &Report{
		Module:  strings.ToUpper(module),
		Name:    pe.Export.Name,
		Exports: make([]Export, 0),
	}
	for _, exp := range pe.Export.Functions {
		if exp.Name == "" {
			continue
		}
		if _, ok := Function(exp.Name); !ok {
			continue
		}
		e := Export{Name: exp.Name, RVA: exp.FunctionRVA, Forwarder: exp.Forwarder}
		if exp.Forwarder != "" {
			e.RVA = exp.ForwarderRVA
		}
		e.Expected = IsExpectedModule(exp.Name, module)
		r.Exports = append(r.Exports, e)
	}
	sort.Slice(r.Exports, func(i, j int) bool { return r.Exports[i].Name < r.Exports[j].Name })
	return r, nil
}
