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

package targets

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/enescakir/emoji"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/sl2/internal/bootstrap"
	"github.com/rabbitstack/sl2/pkg/target"
)

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12] + "…"
	}
	return h
}

func listTargets() error {
	if err := bootstrap.InitConfigAndLogger(cfg); err != nil {
		return err
	}
	specs, err := target.Load(cfg.TargetsFile)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}
	if len(specs) == 0 {
		return fmt.Errorf("%v no target specs found in %s", emoji.DisappointedFace, cfg.TargetsFile)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	if summarized {
		t.AppendHeader(table.Row{"Function", "# Specs", "# Selected"})
		total := make(map[string]int)
		selected := make(map[string]int)
		for _, s := range specs {
			total[s.FunctionName]++
			if s.Selected {
				selected[s.FunctionName]++
			}
		}
		fns := make([]string, 0, len(total))
		for fn := range total {
			fns = append(fns, fn)
		}
		sort.Strings(fns)
		nsel := 0
		for _, fn := range fns {
			t.AppendRow(table.Row{fn, total[fn], selected[fn]})
			nsel += selected[fn]
		}
		t.AppendFooter(table.Row{"TOTAL", len(specs), nsel})
		t.Render()
		return nil
	}

	t.AppendHeader(table.Row{"#", "Function", "Selected", "Mode", "Index", "Return Offset", "Return Count", "Arg Hash", "Buffer", "Source"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", WidthMax: 5},
		{Name: "Mode", WidthMax: 40},
		{Name: "Source", WidthMax: 50},
	})
	n := 0
	for i, s := range specs {
		if selectedOnly && !s.Selected {
			continue
		}
		var sel string
		if s.Selected {
			sel = emoji.CheckMarkButton.String()
		}
		retaddr := "-"
		if s.ReturnAddressOffset >= 0 {
			retaddr = fmt.Sprintf("+0x%x", s.ReturnAddressOffset)
		}
		t.AppendRow(table.Row{i, s.FunctionName, sel, s.Mode, s.Index, retaddr, s.ReturnAddressCount,
			shortHash(s.ArgHash), humanize.Bytes(uint64(len(s.Buffer))), s.Source})
		n++
	}
	t.AppendFooter(table.Row{"TOTAL", n})
	t.Render()
	return nil
}
