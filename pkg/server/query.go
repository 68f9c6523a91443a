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

package server

import (
	"fmt"
	"sort"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/output"
	"github.com/kraklabs/keel/pkg/store"
)

// defaultDiscoverDepth mirrors the CLI's default --depth for `keel discover`.
const defaultDiscoverDepth = 1

// discover builds a DiscoverResult for hash, walking up to depth hops of
// callers and callees. Traversal guards against cycles with a visited set,
// since call edges are not required to be acyclic (recursive and mutually
// recursive functions are legal).
func discover(st *store.Store, hash string, depth int, suggestPlacement bool) (*output.DiscoverResult, error) {
	if depth <= 0 {
		depth = defaultDiscoverDepth
	}

	node, err := st.GetNode(hash)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("no definition with hash %q", hash)
	}

	upstream, err := walkEdges(st, node.ID, graph.DirectionIncoming, depth)
	if err != nil {
		return nil, err
	}
	downstream, err := walkEdges(st, node.ID, graph.DirectionOutgoing, depth)
	if err != nil {
		return nil, err
	}

	result := &output.DiscoverResult{
		Version: output.Version,
		Command: "discover",
		Target: output.DiscoverTarget{
			Name: node.Name, Hash: node.Hash, File: node.FilePath,
			LineStart: node.LineStart, LineEnd: node.LineEnd,
			Signature: node.Signature, Docstring: node.Docstring,
		},
		Upstream:   upstream,
		Downstream: downstream,
	}

	if modCtx, err := moduleContext(st, node.ModuleID); err == nil {
		result.ModuleContext = modCtx
	}

	// suggestPlacement is handled by the W001 placement rule (pkg/enforce)
	// on the next compile; discover only surfaces the current module.
	_ = suggestPlacement

	return result, nil
}

// walkEdges performs a breadth-first traversal up to depth hops from nodeID
// in direction dir, deduplicating by hash and recording the nearest call
// site each target was first reached from.
func walkEdges(st *store.Store, nodeID int64, dir graph.EdgeDirection, depth int) ([]output.CallEntry, error) {
	visited := map[int64]bool{nodeID: true}
	frontier := []int64{nodeID}
	var entries []output.CallEntry

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []int64
		for _, id := range frontier {
			edges, err := st.GetEdges(id, dir)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if e.Kind != graph.EdgeCalls {
					continue
				}
				targetID := e.TargetID
				if dir == graph.DirectionIncoming {
					targetID = e.SourceID
				}
				if visited[targetID] {
					continue
				}
				visited[targetID] = true

				target, err := st.GetNodeByID(targetID)
				if err != nil || target == nil {
					continue
				}
				entries = append(entries, output.CallEntry{
					Name: target.Name, Hash: target.Hash, File: e.FilePath, CallLine: e.Line,
				})
				next = append(next, targetID)
			}
		}
		frontier = next
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
	return entries, nil
}

// moduleContext resolves the module profile containing a node, if any.
func moduleContext(st *store.Store, moduleID int64) (output.ModuleContext, error) {
	if moduleID == 0 {
		return output.ModuleContext{}, fmt.Errorf("no module")
	}
	modNode, err := st.GetNodeByID(moduleID)
	if err != nil || modNode == nil {
		return output.ModuleContext{}, fmt.Errorf("module node not found")
	}
	profile, err := st.GetModuleProfile(moduleID)
	if err != nil || profile == nil {
		return output.ModuleContext{Module: modNode.FilePath}, nil
	}
	return output.ModuleContext{
		Module:                 profile.Path,
		FunctionCount:          profile.FunctionCount,
		ResponsibilityKeywords: profile.ResponsibilityKeywords,
	}, nil
}

// where locates a definition by hash without walking the call graph: its
// current file/line and rename history.
func where(st *store.Store, hash string) (*output.WhereResult, error) {
	node, err := st.GetNode(hash)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("no definition with hash %q", hash)
	}
	return &output.WhereResult{
		Version:        output.Version,
		Command:        "where",
		Hash:           node.Hash,
		Name:           node.Name,
		Kind:           string(node.Kind),
		File:           node.FilePath,
		LineStart:      node.LineStart,
		LineEnd:        node.LineEnd,
		PreviousHashes: node.PreviousHashes,
	}, nil
}

// mapSummary builds a MapResult by reading every module profile and, at
// depth 2+, every function node — the live-store equivalent of what the
// mapper writes during a full Map run.
func mapSummary(st *store.Store, depth int) (*output.MapResult, error) {
	modules, err := st.GetAllModules()
	if err != nil {
		return nil, err
	}

	result := &output.MapResult{
		Version: output.Version,
		Command: "map",
		Depth:   depth,
	}

	var totalFns, totalClasses, totalEdges, totalEndpoints int
	var typeHinted, documented int

	for _, mod := range modules {
		profile, err := st.GetModuleProfile(mod.ID)
		if err != nil || profile == nil {
			continue
		}

		nodes, err := st.GetNodesInFile(mod.FilePath)
		if err != nil {
			return nil, err
		}

		var fnCount, classCount, edgeCount int
		var fnNames []output.FunctionNameEntry
		var fnEntries []output.FunctionEntry
		for _, n := range nodes {
			switch n.Kind {
			case graph.KindFunction:
				fnCount++
				if n.TypeHintsPresent {
					typeHinted++
				}
				if n.HasDocstring {
					documented++
				}
			case graph.KindClass:
				classCount++
			}
			callers, _ := st.GetEdges(n.ID, graph.DirectionIncoming)
			callees, _ := st.GetEdges(n.ID, graph.DirectionOutgoing)
			edgeCount += len(callers) + len(callees)

			if n.Kind == graph.KindFunction {
				connections := len(callers) + len(callees)
				if depth >= 1 {
					fnNames = append(fnNames, output.FunctionNameEntry{
						Name: n.Name, Hash: n.Hash, Callers: len(callers), Callees: len(callees),
					})
					if connections > 0 {
						result.Hotspots = append(result.Hotspots, output.HotspotEntry{
							Path: n.FilePath, Name: n.Name, Hash: n.Hash,
							Callers: len(callers), Callees: len(callees),
							Keywords: profile.ResponsibilityKeywords,
						})
					}
				}
				if depth >= 2 {
					fnEntries = append(fnEntries, output.FunctionEntry{
						Hash: n.Hash, Name: n.Name, Signature: n.Signature,
						File: n.FilePath, Line: n.LineStart,
						Callers: len(callers), Callees: len(callees), IsPublic: n.IsPublic,
					})
				}
			}
			totalEndpoints += len(n.ExternalEndpoints)
		}

		totalFns += fnCount
		totalClasses += classCount
		totalEdges += edgeCount

		entry := output.ModuleEntry{
			Path: profile.Path, FunctionCount: fnCount, ClassCount: classCount,
			EdgeCount: edgeCount, ResponsibilityKeywords: profile.ResponsibilityKeywords,
		}
		if depth >= 1 {
			entry.FunctionNames = fnNames
		}
		result.Modules = append(result.Modules, entry)
		result.Functions = append(result.Functions, fnEntries...)
	}

	sort.Slice(result.Hotspots, func(i, j int) bool {
		return (result.Hotspots[i].Callers + result.Hotspots[i].Callees) > (result.Hotspots[j].Callers + result.Hotspots[j].Callees)
	})
	if len(result.Hotspots) > 10 {
		result.Hotspots = result.Hotspots[:10]
	}

	result.Summary = output.MapSummary{
		TotalNodes:        len(result.Modules) + totalFns + totalClasses,
		TotalEdges:        totalEdges,
		Modules:           len(result.Modules),
		Functions:         totalFns,
		Classes:           totalClasses,
		ExternalEndpoints: totalEndpoints,
	}
	if totalFns > 0 {
		result.Summary.TypeHintCoverage = float64(typeHinted) / float64(totalFns)
		result.Summary.DocstringCoverage = float64(documented) / float64(totalFns)
	}
	return result, nil
}
