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

	"github.com/rabbitstack/sl2/pkg/config"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:   "targets",
	Short: "List or validate target specifications",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the targets document for structural correctness and suspicious specs",
	RunE:  validate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List target specifications",
	RunE:  list,
}

var cfg = config.NewWithOpts(config.WithTargets())

var (
	summarized   bool
	selectedOnly bool
)

func init() {
	cfg.MustViperize(Command)

	Command.AddCommand(validateCmd)

	listCmd.PersistentFlags().BoolVarP(&summarized, "summary", "s", false, "Show the number of specs per function")
	listCmd.PersistentFlags().BoolVar(&selectedOnly, "selected", false, "Show only selected specs")
	Command.AddCommand(listCmd)
}

func validate(cmd *cobra.Command, args []string) error {
	return validateTargets()
}

func list(cmd *cobra.Command, args []string) error {
	return listTargets()
}

func emo(s string, args ...any) { fmt.Printf(s, args...) }
