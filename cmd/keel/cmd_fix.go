// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/output"
)

// runFix re-checks the requested scope and turns every resulting violation
// into a FixPlan. --file narrows the scope to one file; otherwise a target
// hash narrows it to that hash's defining file; with neither, every file
// the graph knows about is rechecked.
func runFix(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("fix", flag.ExitOnError)
	apply := fs.Bool("apply", false, "Apply the proposed edits instead of only printing the plan")
	file := fs.String("file", "", "Restrict the check to one file")
	_ = fs.Parse(args)
	rest := fs.Args()
	var targetHash string
	if len(rest) > 0 {
		targetHash = rest[0]
	}

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	files := fixScope(proj, *file, targetHash, globals)
	indexes, _ := proj.mapper.ParseFiles(context.Background(), root, files, 0)
	result := proj.engine.Compile(indexes, false)

	violations := append(append([]enforce.Violation{}, result.Errors...), result.Warnings...)
	if targetHash != "" {
		violations = filterByHash(violations, targetHash)
	}

	plans := make([]output.FixPlan, 0, len(violations))
	filesTouched := map[string]bool{}
	for _, v := range violations {
		plans = append(plans, buildFixPlan(v))
		filesTouched[v.File] = true
	}

	if *apply {
		runFixApply(proj, plans, globals)
		return
	}

	fixResult := &output.FixResult{
		Version:             output.Version,
		Command:             "fix",
		ViolationsAddressed: len(plans),
		FilesAffected:       len(filesTouched),
		Plans:               plans,
	}
	fmt.Print(formatterFor(globals).FormatFix(fixResult))
}

// fixScope resolves the file list a fix check should run over: --file wins
// outright, otherwise a target hash narrows to its defining file, otherwise
// every file the graph currently knows about.
func fixScope(proj *project, file, targetHash string, globals GlobalFlags) []string {
	if file != "" {
		return []string{file}
	}
	if targetHash != "" {
		n, err := proj.store.GetNode(targetHash)
		if err == nil && n != nil {
			return []string{n.FilePath}
		}
		proj.close()
		errkit.FatalError(errkit.New("unknown hash: "+targetHash), globals.jsonMode())
	}

	modules, _ := proj.store.GetAllModules()
	files := make([]string, 0, len(modules))
	for _, m := range modules {
		files = append(files, m.FilePath)
	}
	return files
}

func filterByHash(violations []enforce.Violation, hash string) []enforce.Violation {
	out := make([]enforce.Violation, 0, len(violations))
	for _, v := range violations {
		if v.Hash == hash {
			out = append(out, v)
		}
	}
	return out
}

// buildFixPlan turns one violation into a FixPlan. Actions come from the
// engine's FixHint when it names a concrete edit; otherwise the plan
// carries the cause and affected callers without a proposed action, leaving
// --apply nothing to do for it.
func buildFixPlan(v enforce.Violation) output.FixPlan {
	plan := output.FixPlan{
		Code:       v.Code,
		Hash:       v.Hash,
		Category:   v.Category,
		TargetName: v.Message,
		Cause:      v.FixHint,
	}
	if v.FixHint == "" {
		plan.Cause = v.Message
	}
	for _, affected := range v.Affected {
		plan.Actions = append(plan.Actions, output.FixAction{
			File: affected.File, Line: affected.Line,
			Description: fmt.Sprintf("caller %s affected by %s", affected.Name, v.Code),
		})
	}
	return plan
}

// runFixApply is deliberately conservative: it only applies actions that
// carry both OldText and NewText, skipping (and reporting as failed)
// anything that's advisory-only, then recompiles to confirm the edit
// actually cleared the violation.
func runFixApply(proj *project, plans []output.FixPlan, globals GlobalFlags) {
	result := &output.FixApplyResult{Version: output.Version, Command: "fix"}
	touched := map[string]bool{}

	for _, plan := range plans {
		for _, action := range plan.Actions {
			if action.OldText == "" || action.NewText == "" {
				result.ActionsFailed++
				continue
			}
			if err := applyFixAction(action); err != nil {
				msg := err.Error()
				result.ActionsFailed++
				result.Details = append(result.Details, output.FixApplyDetail{
					File: action.File, Line: action.Line, Status: "failed", Error: &msg,
				})
				continue
			}
			result.ActionsApplied++
			touched[action.File] = true
			result.Details = append(result.Details, output.FixApplyDetail{
				File: action.File, Line: action.Line, Status: "applied",
			})
		}
	}

	for f := range touched {
		result.FilesModified = append(result.FilesModified, f)
	}

	if len(touched) > 0 {
		files := make([]string, 0, len(touched))
		for f := range touched {
			files = append(files, f)
		}
		indexes, _ := proj.mapper.ParseFiles(context.Background(), proj.root, files, 0)
		recompiled := proj.engine.Compile(indexes, false)
		result.RecompileClean = recompiled.Status == enforce.StatusOK
		result.RecompileErrors = len(recompiled.Errors)
	} else {
		result.RecompileClean = true
	}

	fmt.Print(formatterFor(globals).FormatFixApply(result))
}

// applyFixAction performs a literal string replacement of OldText with
// NewText in File. It refuses to apply when OldText isn't found exactly
// once, since a non-unique match means the edit target is ambiguous.
func applyFixAction(action output.FixAction) error {
	data, err := os.ReadFile(action.File)
	if err != nil {
		return err
	}
	content := string(data)
	count := strings.Count(content, action.OldText)
	if count != 1 {
		return fmt.Errorf("expected exactly one match for old text, found %d", count)
	}
	updated := strings.Replace(content, action.OldText, action.NewText, 1)
	return os.WriteFile(action.File, []byte(updated), 0o644)
}
