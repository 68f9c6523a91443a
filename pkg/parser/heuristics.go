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

package parser

import (
	"path"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
)

// sameDirectory reports whether two slash-separated file paths share a
// parent directory — the Go "same package" heuristic, since Go visibility
// crosses files within one directory without an explicit import.
func sameDirectory(a, b string) bool {
	return path.Dir(a) == path.Dir(b)
}

// importQualifierMatches reports whether qualifier could plausibly refer to
// the given import: either its explicit alias, or the last path segment of
// its source (the conventional package/module name).
func importQualifierMatches(qualifier string, imp graph.Import) bool {
	if qualifier == "" {
		return false
	}
	if imp.Alias != "" {
		return strings.EqualFold(qualifier, imp.Alias)
	}
	segments := strings.Split(strings.Trim(imp.Source, "/"), "/")
	last := segments[len(segments)-1]
	// TypeScript/JS often import a default export under a different local
	// name than the file's basename; still compare case-insensitively
	// against the module's final path segment as the best-effort fallback.
	last = strings.TrimSuffix(last, ".ts")
	last = strings.TrimSuffix(last, ".tsx")
	last = strings.TrimSuffix(last, ".js")
	last = strings.TrimSuffix(last, ".py")
	return strings.EqualFold(qualifier, last)
}
