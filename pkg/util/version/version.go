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

package version

import (
	"fmt"
	"io"
	"runtime"

	semver "github.com/hashicorp/go-version"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Version is the release information stamped at build time.
type Version struct {
	sem    *semver.Version
	Commit string
	Date   string
}

var current Version

// Set parses and records the version of the running binary.
func Set(version, commit, date string) error {
	v, err := New(version, commit, date)
	if err != nil {
		return err
	}
	current = v
	return nil
}

// Current returns the version recorded by Set.
func Current() Version { return current }

// New parses the release version. An empty version or 0.0.0 denotes a dev build.
func New(version, commit, date string) (Version, error) {
	v := Version{Commit: commit, Date: date}
	if version == "" || version == "0.0.0" {
		return v, nil
	}
	sem, err := semver.NewSemver(version)
	if err != nil {
		return v, fmt.Errorf("invalid semver release %q: %v", version, err)
	}
	v.sem = sem
	return v, nil
}

// IsDev determines if this is a dev build.
func (v Version) IsDev() bool { return v.sem == nil }

// String returns the version string.
func (v Version) String() string {
	if v.IsDev() {
		return "dev"
	}
	return v.sem.String()
}

// ProductToken returns the name/version pair identifying the binary.
func (v Version) ProductToken() string { return "sl2/" + v.String() }

// AtLeast determines if the version is equal or newer than the constraint
// version. Dev builds satisfy any constraint.
func (v Version) AtLeast(min string) bool {
	if v.IsDev() {
		return true
	}
	c, err := semver.NewConstraint(">= " + min)
	if err != nil {
		return false
	}
	return c.Check(v.sem)
}

// Render writes the version table.
func (v Version) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Version", v.String()})
	t.AppendRow(table.Row{"Commit", v.Commit})
	t.AppendRow(table.Row{"Build date", v.Date})

	t.AppendSeparator()

	t.AppendRow(table.Row{"Go compiler", runtime.Version()})
	t.AppendRow(table.Row{"Platform", runtime.GOOS + "/" + runtime.GOARCH})

	t.Render()
}
