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

	"github.com/enescakir/emoji"
	"github.com/rabbitstack/sl2/internal/bootstrap"
	"github.com/rabbitstack/sl2/pkg/target"
)

func validateTargets() error {
	if err := bootstrap.InitConfigAndLogger(cfg); err != nil {
		return err
	}
	emo("%v Loading targets from %s\n", emoji.Package, cfg.TargetsFile)
	specs, err := target.Load(cfg.TargetsFile)
	if err != nil {
		return fmt.Errorf("%v %v", emoji.DisappointedFace, err)
	}

	issues := target.Validate(specs)
	errs := 0
	for _, issue := range issues {
		if issue.Severity == target.Error {
			errs++
			emo("%v spec #%d (%s): %s\n", emoji.CrossMark, issue.Index, specs[issue.Index].FunctionName, issue.Message)
			continue
		}
		emo("%v spec #%d (%s): %s\n", emoji.Warning, issue.Index, specs[issue.Index].FunctionName, issue.Message)
	}
	if errs > 0 {
		return fmt.Errorf("%v %d spec(s) can never match", emoji.DisappointedFace, errs)
	}

	selected := 0
	for _, s := range specs {
		if s.Selected {
			selected++
		}
	}
	if selected == 0 {
		emo("%v none of the %d spec(s) is selected, no call will be targeted\n", emoji.Warning, len(specs))
		return nil
	}
	emo("%v Validation successful. %d of %d spec(s) selected. Ready to fuzz!\n", emoji.Rocket, selected, len(specs))
	return nil
}
