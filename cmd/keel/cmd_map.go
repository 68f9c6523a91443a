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

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/output"
	"github.com/kraklabs/keel/pkg/parser"
)

func runMap(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	depth := fs.Int("depth", 1, "Detail depth of the resulting summary (0-3)")
	workers := fs.Int("workers", 0, "Parse worker count (0 = auto)")
	_ = fs.Parse(args)

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	var bar *progressbar.ProgressBar
	var barMax int64 = -1
	if !globals.JSON && !globals.LLM {
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("mapping"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
	}

	opts := mapper.Options{
		Root:         root,
		ParseWorkers: *workers,
		OnProgress: func(current, total int64, phase string) {
			if bar == nil {
				return
			}
			if total > 0 && total != barMax {
				bar.ChangeMax64(total)
				barMax = total
			}
			_ = bar.Set64(current)
		},
	}

	result, err := proj.mapper.Map(context.Background(), opts)
	if err != nil {
		proj.close()
		errkit.FatalError(errkit.New("map failed").WithCause(err), globals.jsonMode())
	}
	if bar != nil {
		_ = bar.Finish()
	}

	modules, _ := proj.store.GetAllModules()
	summary := buildMapSummary(proj, modules)

	mapResult := &output.MapResult{
		Version: output.Version,
		Command: "map",
		RunID:   result.RunID,
		Summary: summary,
		Depth:   *depth,
	}
	if *depth >= 1 {
		mapResult.Modules = buildModuleEntries(proj, modules, *depth)
	}

	f := formatterFor(globals)
	fmt.Print(f.FormatMap(mapResult))
}

func buildMapSummary(proj *project, modules []*graph.Node) output.MapSummary {
	summary := output.MapSummary{Modules: len(modules)}
	languageSet := map[string]bool{}
	var typed, documented, total int

	for _, m := range modules {
		nodes, err := proj.store.GetNodesInFile(m.FilePath)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			switch n.Kind {
			case graph.KindFunction:
				summary.Functions++
			case graph.KindClass:
				summary.Classes++
			}
			summary.ExternalEndpoints += len(n.ExternalEndpoints)
			if n.Kind != graph.KindModule {
				total++
				if n.TypeHintsPresent {
					typed++
				}
				if n.HasDocstring {
					documented++
				}
			}
		}
		if lang := parser.LanguageForPath(m.FilePath); lang != "" {
			languageSet[lang] = true
		}
	}

	for lang := range languageSet {
		summary.Languages = append(summary.Languages, lang)
	}
	summary.TotalNodes = summary.Modules + summary.Functions + summary.Classes
	if total > 0 {
		summary.TypeHintCoverage = float64(typed) / float64(total)
		summary.DocstringCoverage = float64(documented) / float64(total)
	}
	return summary
}

// buildModuleEntries renders one ModuleEntry per module (file), including
// per-function names/caller/callee counts once depth reaches 1, matching
// map's depth-gated detail tiers.
func buildModuleEntries(proj *project, modules []*graph.Node, depth int) []output.ModuleEntry {
	entries := make([]output.ModuleEntry, 0, len(modules))
	for _, m := range modules {
		entry := output.ModuleEntry{Path: m.FilePath}
		profile, err := proj.store.GetModuleProfile(m.ID)
		if err == nil && profile != nil {
			entry.ResponsibilityKeywords = profile.ResponsibilityKeywords
		}

		nodes, err := proj.store.GetNodesInFile(m.FilePath)
		if err != nil {
			entries = append(entries, entry)
			continue
		}
		for _, n := range nodes {
			switch n.Kind {
			case graph.KindFunction:
				entry.FunctionCount++
			case graph.KindClass:
				entry.ClassCount++
			}
			for _, ep := range n.ExternalEndpoints {
				entry.ExternalEndpoints = append(entry.ExternalEndpoints, ep.Method+" "+ep.Path)
			}
			if depth >= 1 && n.Kind == graph.KindFunction {
				callers, _ := proj.store.GetEdges(n.ID, graph.DirectionIncoming)
				callees, _ := proj.store.GetEdges(n.ID, graph.DirectionOutgoing)
				entry.FunctionNames = append(entry.FunctionNames, output.FunctionNameEntry{
					Name: n.Name, Hash: n.Hash, Callers: len(callers), Callees: len(callees),
				})
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
