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
	"github.com/rabbitstack/sl2/cmd/sl2/app/targets"
	"github.com/rabbitstack/sl2/pkg/util/version"
	"github.com/spf13/cobra"
)

// set at link time
var (
	ver    string
	commit string
	built  string
)

// RootCmd is the entrance to sl2 CLI
var RootCmd = &cobra.Command{
	Use:   "sl2",
	Short: "Call targeting toolkit for the sl2 fuzzer",
	Long: `
	sl2 decides which intercepted call of an instrumented program gets fuzzed.
	Target specifications recorded during a capture run describe the call by
	its function, call index, return address, argument hash and buffer
	contents. This tool inspects and validates target documents, computes
	argument hashes and replays recorded traces against the targets.
	`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return version.Set(ver, commit, built)
	},
}

func init() {
	RootCmd.AddCommand(targets.Command)
	RootCmd.AddCommand(hashCmd)
	RootCmd.AddCommand(replayCmd)
	RootCmd.AddCommand(modulesCmd)
	RootCmd.AddCommand(versionCmd)
}
