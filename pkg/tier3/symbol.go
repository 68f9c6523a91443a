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

package tier3

import "strings"

// ScipSymbol is a parsed SCIP symbol string:
// "scheme manager package_name version descriptor_path".
// See https://github.com/sourcegraph/scip/blob/main/docs/reference.md.
type ScipSymbol struct {
	Scheme         string
	Manager        string
	PackageName    string
	Version        string
	Descriptors    []string
	descriptorPath string
}

// ParseScipSymbol parses a SCIP symbol string into its structured form.
func ParseScipSymbol(s string) (ScipSymbol, bool) {
	if s == "" {
		return ScipSymbol{}, false
	}
	parts := strings.SplitN(s, " ", 5)
	if len(parts) != 5 {
		return ScipSymbol{}, false
	}
	descriptorPath := parts[4]
	if descriptorPath == "" {
		return ScipSymbol{}, false
	}

	var descriptors []string
	for _, d := range strings.Split(descriptorPath, "/") {
		if d != "" {
			descriptors = append(descriptors, d)
		}
	}

	return ScipSymbol{
		Scheme:         parts[0],
		Manager:        parts[1],
		PackageName:    parts[2],
		Version:        parts[3],
		Descriptors:    descriptors,
		descriptorPath: descriptorPath,
	}, true
}

// isSuffixOrSep reports whether r is one of a SCIP descriptor's suffix
// markers (term '#', type/namespace '.', method '()', type-param '[]').
func isSuffixOrSep(r rune) bool {
	switch r {
	case '#', '.', ')', '(', ']', '[':
		return true
	default:
		return false
	}
}

// SymbolName extracts the simple name from a symbol's descriptor path, e.g.
// "myFunc" from "src/index.ts/myFunc#" or "render" from
// "src/index.ts/MyClass#render().".
func SymbolName(sym ScipSymbol) string {
	path := []rune(sym.descriptorPath)
	if len(path) == 0 {
		return ""
	}

	end := len(path)
	for end > 0 && isSuffixOrSep(path[end-1]) {
		end--
	}
	if end == 0 {
		return ""
	}

	start := end
	for start > 0 {
		c := path[start-1]
		if isSuffixOrSep(c) || c == '/' {
			break
		}
		start--
	}

	return string(path[start:end])
}

// SymbolMatchesName reports whether sym's extracted simple name equals name.
func SymbolMatchesName(sym ScipSymbol, name string) bool {
	return SymbolName(sym) == name
}
