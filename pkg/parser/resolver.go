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
	"fmt"
	"time"

	"github.com/kraklabs/keel/pkg/graph"
)

// LanguageResolver parses one file's content into a FileIndex (Tier 1,
// same-file only) and, separately, resolves still-unresolved references
// using whatever cross-file heuristics apply to its language (Tier 2).
// Implementations own their own parser state and must be safe for
// concurrent use by multiple goroutines — the tree-sitter-backed
// implementations do this with a sync.Pool of thread-unsafe parsers.
type LanguageResolver interface {
	// Language returns the tag this resolver handles, e.g. "go".
	Language() string
	// ParseFile extracts definitions, references, and imports from content.
	ParseFile(path string, content []byte) (graph.FileIndex, error)
	// ResolveCrossFile attempts Tier 2 resolution of one reference against
	// a global name index, returning ok=false when it cannot resolve.
	ResolveCrossFile(ref graph.Reference, fromFile graph.FileIndex, index *NameIndex) (target ResolvedTarget, confidence float64, ok bool)
}

// ResolvedTarget names where a reference resolved to.
type ResolvedTarget struct {
	File string
	Name string
}

// NameIndex is the global (file, name) -> definition index built once per
// map/compile invocation and shared read-only across the resolution passes.
type NameIndex struct {
	// ByFileAndName supports same-file lookups: key is file+"\x00"+name.
	ByFileAndName map[string]graph.PendingNode
	// ByName supports cross-file lookups: every (file, definition) sharing
	// a name, in discovery order.
	ByName map[string][]FileDefinition
	// Imports indexes each file's import statements for Tier 2 resolution.
	Imports map[string][]graph.Import
	// AllExports indexes each file's `__all__` list (Python), keyed by path.
	AllExports map[string][]string
}

// FileDefinition pairs a PendingNode with the file it was found in.
type FileDefinition struct {
	File string
	Node graph.PendingNode
}

// NewNameIndex builds a NameIndex from a set of freshly parsed FileIndexes.
func NewNameIndex(indexes []graph.FileIndex) *NameIndex {
	idx := &NameIndex{
		ByFileAndName: make(map[string]graph.PendingNode),
		ByName:        make(map[string][]FileDefinition),
		Imports:       make(map[string][]graph.Import),
		AllExports:    make(map[string][]string),
	}
	for _, fi := range indexes {
		idx.Imports[fi.Path] = fi.Imports
		if len(fi.AllExports) > 0 {
			idx.AllExports[fi.Path] = fi.AllExports
		}
		for _, def := range fi.Definitions {
			idx.ByFileAndName[fi.Path+"\x00"+def.Name] = def
			idx.ByName[def.Name] = append(idx.ByName[def.Name], FileDefinition{File: fi.Path, Node: def})
		}
	}
	return idx
}

// Registry dispatches by language tag to the resolver that handles it.
type Registry struct {
	resolvers map[string]LanguageResolver
}

// NewRegistry builds a registry from a set of resolvers, keyed by their own
// Language() tag.
func NewRegistry(resolvers ...LanguageResolver) *Registry {
	r := &Registry{resolvers: make(map[string]LanguageResolver, len(resolvers))}
	for _, res := range resolvers {
		r.resolvers[res.Language()] = res
	}
	return r
}

// For returns the resolver for language, or nil if none is registered.
func (r *Registry) For(language string) LanguageResolver {
	return r.resolvers[language]
}

// ParseFile dispatches to the resolver matching path's extension and wraps
// the result with timing, matching the ParseDuration field FileIndex
// carries for observability.
func (r *Registry) ParseFile(path string, content []byte) (graph.FileIndex, error) {
	language := LanguageForPath(path)
	resolver := r.For(language)
	if resolver == nil {
		return graph.FileIndex{Path: path, Language: language}, fmt.Errorf("no resolver registered for language %q", language)
	}
	start := time.Now()
	idx, err := resolver.ParseFile(path, content)
	idx.ParseDuration = time.Since(start).Nanoseconds()
	idx.Path = path
	idx.Language = language
	if err != nil {
		idx.ParseError = err
	}
	return idx, err
}
