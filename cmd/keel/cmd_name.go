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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/output"
	"github.com/kraklabs/keel/pkg/parser"
)

// runName suggests where a new piece of functionality belongs and what to
// call it, ranking every known module's profile against description's
// keywords.
func runName(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("name", flag.ExitOnError)
	moduleFilter := fs.String("module", "", "Restrict candidates to modules under this path")
	kindFilter := fs.String("kind", "", "The kind of definition being named: function or class")
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) == 0 {
		errkit.FatalError(errkit.New("name requires a description"), globals.jsonMode())
	}
	description := strings.Join(rest, " ")
	_ = kindFilter

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	modules, err := proj.store.GetAllModules()
	if err != nil {
		proj.close()
		errkit.FatalError(errkit.New("name failed").WithCause(err), globals.jsonMode())
	}

	candidates := buildModuleCandidates(proj, modules, *moduleFilter)
	suggestion := enforce.SuggestName(description, candidates)

	result := &output.NameResult{
		Version:     output.Version,
		Command:     "name",
		Description: description,
		Suggestions: []enforce.NameSuggestion{*suggestion},
	}
	fmt.Print(formatterFor(globals).FormatName(result))
}

// buildModuleCandidates turns every module node into an enforce.ModuleCandidate,
// pulling its profile, language, sibling paths in the same directory, and its
// last declared function (the natural insertion point for a new one).
func buildModuleCandidates(proj *project, modules []*graph.Node, moduleFilter string) []enforce.ModuleCandidate {
	byDir := map[string][]string{}
	for _, m := range modules {
		dir := filepath.Dir(m.FilePath)
		byDir[dir] = append(byDir[dir], m.FilePath)
	}

	candidates := make([]enforce.ModuleCandidate, 0, len(modules))
	for _, m := range modules {
		if moduleFilter != "" && !strings.Contains(m.FilePath, moduleFilter) {
			continue
		}

		c := enforce.ModuleCandidate{
			Path:     m.FilePath,
			Language: parser.LanguageForPath(m.FilePath),
		}

		for _, sib := range byDir[filepath.Dir(m.FilePath)] {
			if sib != m.FilePath {
				c.Siblings = append(c.Siblings, sib)
			}
		}

		if profile, err := proj.store.GetModuleProfile(m.ID); err == nil && profile != nil {
			c.ResponsibilityKeywords = profile.ResponsibilityKeywords
			c.FunctionNamePrefixes = profile.FunctionNamePrefixes
		}

		if nodes, err := proj.store.GetNodesInFile(m.FilePath); err == nil {
			for _, n := range nodes {
				if n.Kind != graph.KindFunction {
					continue
				}
				if n.LineStart > c.LastFunctionLine {
					c.LastFunctionName = n.Name
					c.LastFunctionLine = n.LineEnd
				}
			}
		}

		candidates = append(candidates, c)
	}
	return candidates
}
