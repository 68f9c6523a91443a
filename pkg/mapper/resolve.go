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
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/tier3"
)

// tier1Confidence is used for same-file call resolution, which has direct
// AST evidence (the call site and its target sit in the same parse tree).
const tier1Confidence = 0.95

// pendingEdge is a resolved call, not yet assigned store ids.
type pendingEdge struct {
	sourceHash string
	targetHash string
	kind       graph.EdgeKind
	filePath   string
	line       int
	confidence float64
}

// resolveReferences runs the three-pass resolution strategy over every
// file's references, mutating each graph.Reference's ResolvedHash in place
// (the enforcement engine reads this field directly) and returning the
// edges to write to the store.
func resolveReferences(fileIndexes []graph.FileIndex, index *parser.NameIndex, registry *parser.Registry, tier3Registry *tier3.Registry) []pendingEdge {
	var edges []pendingEdge
	resolvedLines := make(map[string]map[int]bool)

	markResolved := func(file string, line int) {
		if resolvedLines[file] == nil {
			resolvedLines[file] = make(map[int]bool)
		}
		resolvedLines[file][line] = true
	}

	// Pass 1: same-file resolution. A reference resolves here when its
	// name matches a definition discovered in the very file it occurs in.
	for fi := range fileIndexes {
		fileIdx := &fileIndexes[fi]
		byName := make(map[string]graph.PendingNode, len(fileIdx.Definitions))
		for _, def := range fileIdx.Definitions {
			byName[def.Name] = def
		}

		for ri := range fileIdx.References {
			ref := &fileIdx.References[ri]
			if ref.Kind != graph.RefCall {
				continue
			}
			def, ok := byName[ref.Name]
			if !ok {
				continue
			}
			ref.ResolvedHash = def.Hash
			edges = append(edges, pendingEdge{
				sourceHash: ref.CallerHash,
				targetHash: def.Hash,
				kind:       graph.EdgeCalls,
				filePath:   fileIdx.Path,
				line:       ref.Line,
				confidence: tier1Confidence,
			})
			markResolved(fileIdx.Path, ref.Line)
		}
	}

	// Pass 2: cross-file resolution via each language's import-aware
	// heuristics, consulting the global name index.
	for fi := range fileIndexes {
		fileIdx := &fileIndexes[fi]
		resolver := registry.For(fileIdx.Language)
		if resolver == nil {
			continue
		}

		for ri := range fileIdx.References {
			ref := &fileIdx.References[ri]
			if ref.Kind != graph.RefCall || ref.ResolvedHash != "" {
				continue
			}
			target, confidence, ok := resolver.ResolveCrossFile(*ref, *fileIdx, index)
			if !ok {
				continue
			}
			def, found := index.ByFileAndName[target.File+"\x00"+target.Name]
			if !found {
				continue
			}
			ref.ResolvedHash = def.Hash
			edges = append(edges, pendingEdge{
				sourceHash: ref.CallerHash,
				targetHash: def.Hash,
				kind:       graph.EdgeCalls,
				filePath:   fileIdx.Path,
				line:       ref.Line,
				confidence: confidence,
			})
			markResolved(fileIdx.Path, ref.Line)
		}
	}

	// Pass 3: Tier 3 (SCIP/LSP), for whatever remains. Skip any site where
	// a higher tier already produced an edge at the same (file, line).
	// Every still-unresolved reference is collected first and dispatched as
	// one bounded-concurrency batch, instead of one provider round trip at
	// a time, since a large unresolved tail commonly spans many files.
	if !tier3Registry.Empty() {
		type pendingRef struct {
			fileIdx *graph.FileIndex
			ref     *graph.Reference
		}
		var pending []pendingRef
		var sites []tier3.CallSite

		for fi := range fileIndexes {
			fileIdx := &fileIndexes[fi]
			for ri := range fileIdx.References {
				ref := &fileIdx.References[ri]
				if ref.Kind != graph.RefCall || ref.ResolvedHash != "" {
					continue
				}
				if resolvedLines[fileIdx.Path][ref.Line] {
					continue
				}
				pending = append(pending, pendingRef{fileIdx: fileIdx, ref: ref})
				sites = append(sites, tier3.CallSite{
					FilePath:   fileIdx.Path,
					Line:       ref.Line,
					CalleeName: ref.Name,
					Receiver:   ref.Qualifier,
				})
			}
		}

		results := tier3Registry.ResolveBatch(sites)
		for i, res := range results {
			if !res.Resolved {
				continue
			}
			fileIdx, ref := pending[i].fileIdx, pending[i].ref
			def, found := index.ByFileAndName[res.TargetFile+"\x00"+res.TargetName]
			if !found {
				def, found = findByFileAndName(index, res.TargetFile, res.TargetName)
			}
			if !found {
				continue
			}
			ref.ResolvedHash = def.Hash
			edges = append(edges, pendingEdge{
				sourceHash: ref.CallerHash,
				targetHash: def.Hash,
				kind:       graph.EdgeCalls,
				filePath:   fileIdx.Path,
				line:       ref.Line,
				confidence: res.Confidence,
			})
			markResolved(fileIdx.Path, ref.Line)
		}
	}

	return edges
}

// findByFileAndName is a fallback lookup for when a Tier 3 provider names a
// target file that wasn't indexed under the exact same path key used by
// ByFileAndName (e.g. a path normalization difference between providers).
func findByFileAndName(index *parser.NameIndex, file, name string) (graph.PendingNode, bool) {
	for _, def := range index.ByName[name] {
		if def.File == file {
			return def.Node, true
		}
	}
	return graph.PendingNode{}, false
}
