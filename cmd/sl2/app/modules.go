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

package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/enescakir/emoji"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/funcmod"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules [module...]",
	Short: "Show where the intercepted functions are expected, or inspect module exports",
	Long: `
	Without arguments, prints the table of intercepted functions and the
	modules expected to export them. Given module paths, parses their
	export directories and reports the intercepted functions each exports.
	`,
	RunE: modules,
}

func modules(cmd *cobra.Command, args []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	if len(args) == 0 {
		t.AppendHeader(table.Row{"Function", "Exports", "Modules"})
		for _, fn := range callevent.Functions() {
			exports := funcmod.Exports(fn)
			t.AppendRow(table.Row{fn, strings.Join(exports, ", "), strings.Join(funcmod.Modules(exports[0]), ", ")})
		}
		t.Render()
		return nil
	}

	t.AppendHeader(table.Row{"Module", "Export", "RVA", "Forwarder", "Expected"})
	for _, path := range args {
		r, err := funcmod.Inspect(path)
		if err != nil {
			return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
		}
		for _, e := range r.Exports {
			mark := emoji.Warning.String()
			if e.Expected {
				mark = emoji.CheckMarkButton.String()
			}
			t.AppendRow(table.Row{r.Module, e.Name, fmt.Sprintf("0x%x", e.RVA), e.Forwarder, mark})
		}
		for _, name := range r.Missing() {
			t.AppendRow(table.Row{r.Module, name, "-", "", emoji.CrossMark.String()})
		}
		t.AppendSeparator()
	}
	t.Render()
	return nil
}
