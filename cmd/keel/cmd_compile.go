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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/enforce"
)

func runCompile(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Promote warnings to errors")
	batchStart := fs.Bool("batch-start", false, "Enter batch mode before compiling")
	batchEnd := fs.Bool("batch-end", false, "Flush batch mode and exit")
	suppress := fs.String("suppress", "", "Suppress a rule code for this and future compiles")
	delta := fs.Bool("delta", false, "Report the delta against the previous compile's snapshot")
	_ = fs.Parse(args)
	files := fs.Args()

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)

	if *suppress != "" {
		proj.engine.Suppress(*suppress)
	}

	f := formatterFor(globals)

	if *batchEnd {
		result := proj.engine.BatchEnd()
		proj.telemetry.RecordCompile(0, len(result.Errors), len(result.Warnings))
		fmt.Print(f.FormatCompile(result))
		code := exitForStatus(result.Status)
		proj.close()
		os.Exit(code)
	}

	if *batchStart {
		proj.engine.BatchStart()
	}

	if len(files) == 0 {
		proj.close()
		errkit.FatalError(errkit.New("compile requires at least one file").
			WithSuggestion("pass file paths, or use keel map to build the full graph"), globals.jsonMode())
	}

	// Engine.Compile overwrites last_compile.json as soon as it runs, so the
	// previous snapshot has to be captured before that call when --delta is
	// requested.
	var previous *enforce.CompileDelta
	if *delta {
		prevSnap, _ := enforce.LoadSnapshot(proj.keelDir)
		start := time.Now()
		indexes, _ := proj.mapper.ParseFiles(context.Background(), root, files, 0)
		if err := proj.mapper.WriteParsed(indexes); err != nil {
			proj.close()
			errkit.FatalError(errkit.New("failed to persist compiled nodes").WithCause(err), globals.jsonMode())
		}
		result := proj.engine.Compile(indexes, *strict)
		proj.telemetry.RecordCompile(time.Since(start), len(result.Errors), len(result.Warnings))
		d := enforce.ComputeDelta(prevSnap, result)
		previous = &d
		printDelta(*previous, globals)
		fmt.Print(f.FormatCompile(result))
		code := exitForStatus(result.Status)
		proj.close()
		os.Exit(code)
	}

	start := time.Now()
	indexes, _ := proj.mapper.ParseFiles(context.Background(), root, files, 0)
	if err := proj.mapper.WriteParsed(indexes); err != nil {
		proj.close()
		errkit.FatalError(errkit.New("failed to persist compiled nodes").WithCause(err), globals.jsonMode())
	}
	result := proj.engine.Compile(indexes, *strict)
	proj.telemetry.RecordCompile(time.Since(start), len(result.Errors), len(result.Warnings))
	fmt.Print(f.FormatCompile(result))
	code := exitForStatus(result.Status)
	proj.close()
	os.Exit(code)
}

func printDelta(d enforce.CompileDelta, globals GlobalFlags) {
	if globals.JSON {
		return
	}
	fmt.Printf("delta: +%d/-%d errors, +%d/-%d warnings, pressure=%s\n",
		len(d.NewErrors), len(d.ResolvedErrors), len(d.NewWarnings), len(d.ResolvedWarnings), d.Pressure)
}
