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

package mapper

import (
	"sort"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
)

// buildModuleProfile derives a ModuleProfile from one file's parse output,
// for placement scoring (W001) and responsibility tagging.
func buildModuleProfile(fi graph.FileIndex, moduleID int64) graph.ModuleProfile {
	prefixCounts := make(map[string]int)
	var primaryTypes []string
	endpointCount := 0

	for _, def := range fi.Definitions {
		if p := namePrefix(def.Name); p != "" {
			prefixCounts[p]++
		}
		if def.Kind == graph.KindClass {
			primaryTypes = append(primaryTypes, def.Name)
		}
		endpointCount += len(def.ExternalEndpoints)
	}

	var prefixes []string
	var keywords []string
	for prefix, count := range prefixCounts {
		prefixes = append(prefixes, prefix)
		if count >= 2 {
			keywords = append(keywords, prefix)
		}
	}
	sort.Strings(prefixes)
	sort.Strings(keywords)
	sort.Strings(primaryTypes)

	importSources := make([]string, 0, len(fi.Imports))
	seenImport := make(map[string]bool)
	for _, imp := range fi.Imports {
		if imp.Source == "" || seenImport[imp.Source] {
			continue
		}
		seenImport[imp.Source] = true
		importSources = append(importSources, imp.Source)
	}
	sort.Strings(importSources)

	return graph.ModuleProfile{
		ModuleID:               moduleID,
		Path:                   fi.Path,
		FunctionCount:          len(fi.Definitions),
		FunctionNamePrefixes:   prefixes,
		PrimaryTypes:           primaryTypes,
		ImportSources:          importSources,
		ExportTargets:          nil,
		ExternalEndpointCount:  endpointCount,
		ResponsibilityKeywords: keywords,
	}
}

// namePrefix extracts the leading verb-like token from an identifier:
// the segment before the first underscore, or the leading lowercase run
// before the first capitalized hump in camelCase.
func namePrefix(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	runes := []rune(name)
	for i := 1; i < len(runes); i++ {
		if runes[i] >= 'A' && runes[i] <= 'Z' {
			return string(runes[:i])
		}
	}
	return ""
}
