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

	"github.com/enescakir/emoji"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/sl2/internal/bootstrap"
	"github.com/rabbitstack/sl2/pkg/config"
	"github.com/rabbitstack/sl2/pkg/replay"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded trace against the target specs",
	RunE:  runReplay,
}

var (
	replayCfg   = config.NewWithOpts(config.WithReplay())
	onlyTargets bool
)

func init() {
	replayCfg.MustViperize(replayCmd)
	replayCmd.Flags().BoolVar(&onlyTargets, "only-targeted", false, "Show only the calls selected for fuzzing")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := bootstrap.InitConfigAndLogger(replayCfg); err != nil {
		return err
	}
	specs, err := bootstrap.LoadTargets(replayCfg)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}
	trace, err := replay.Load(replayCfg.TraceFile)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}
	s := bootstrap.NewSession(replayCfg, specs, trace.Memory())
	verdicts, err := trace.Run(s)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Call", "Return Offset", "Targeted"})
	for _, v := range verdicts {
		if onlyTargets && !v.Targeted {
			continue
		}
		mark := ""
		if v.Targeted {
			mark = emoji.DirectHit.String()
		}
		t.AppendRow(table.Row{v.Index, v.Event.Function, fmt.Sprintf("+0x%x", v.Event.ReturnAddressOffset), mark})
	}
	t.AppendFooter(table.Row{"TOTAL", len(verdicts), "", s.Targeted()})
	t.Render()

	if s.Targeted() == 0 {
		fmt.Printf("%v no call in %s matched the targets in %s\n", emoji.Warning, replayCfg.TraceFile, replayCfg.TargetsFile)
	}
	return nil
}
