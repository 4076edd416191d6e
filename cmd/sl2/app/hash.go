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
	"github.com/rabbitstack/sl2/pkg/callevent"
	"github.com/rabbitstack/sl2/pkg/hashing"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Compute the argument hash of a call",
	Long: `
	Computes the argument hash the way the event builders do for the
	given function, so the value can be pasted into the argHash field
	of a target spec.
	`,
	Example: `  sl2 hash --function ReadFile --file 'C:\fuzz\input.bin' --position 16 --read-size 8
  sl2 hash --function recv --id 0x240 --read-size 512`,
	RunE: computeHash,
}

var hashArgs struct {
	function string
	file     string
	id       uint64
	position uint64
	readSize uint64
	count    uint64
}

func init() {
	flags := hashCmd.Flags()
	flags.StringVarP(&hashArgs.function, "function", "f", "ReadFile", "Intercepted function name")
	flags.StringVar(&hashArgs.file, "file", "", "Path of the file or event log read from")
	flags.Uint64Var(&hashArgs.id, "id", 0, "Socket or C runtime file descriptor")
	flags.Uint64Var(&hashArgs.position, "position", 0, "File pointer, event log record offset, or fread_s buffer size")
	flags.Uint64Var(&hashArgs.readSize, "read-size", 0, "Number of bytes requested")
	flags.Uint64Var(&hashArgs.count, "count", 0, "Element count of the C runtime reads")
}

// hashContext lays out the call metadata the way the event
// builder of the function does.
func hashContext(fn callevent.Function) (*hashing.Context, error) {
	var ctx hashing.Context
	switch fn {
	case callevent.ReadFile, callevent.ReadEventLog:
		if err := ctx.SetFileName(hashArgs.file); err != nil {
			return nil, err
		}
		ctx.Position = hashArgs.position
		ctx.ReadSize = hashArgs.readSize
	case callevent.Recv:
		ctx.SetIdentifier(hashArgs.id)
		ctx.ReadSize = hashArgs.readSize
	case callevent.Fread:
		ctx.SetIdentifier(hashArgs.id)
		ctx.ReadSize = hashArgs.readSize
		ctx.Count = hashArgs.count
	case callevent.FreadS:
		ctx.SetIdentifier(hashArgs.id)
		ctx.Position = hashArgs.position
		ctx.ReadSize = hashArgs.readSize
		ctx.Count = hashArgs.count
	case callevent.RawRead:
		ctx.SetIdentifier(hashArgs.id)
		ctx.Count = hashArgs.count
	case callevent.MapViewOfFile:
		ctx.Position = hashArgs.position
		ctx.ReadSize = hashArgs.readSize
	default:
		ctx.ReadSize = hashArgs.readSize
	}
	return &ctx, nil
}

func computeHash(cmd *cobra.Command, args []string) error {
	fn, err := callevent.ParseFunction(hashArgs.function)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}
	ctx, err := hashContext(fn)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}
	fmt.Fprintln(os.Stdout, hashing.NewHasher(0).Sum(ctx))
	return nil
}
