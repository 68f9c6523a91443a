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

	"github.com/kraklabs/keel/pkg/graph"
)

// Hotspot is a node ranked by how central it is to the call graph.
type Hotspot struct {
	Hash        string
	Name        string
	FilePath    string
	CallerCount int
	CalleeCount int
}

// computeHotspots ranks nodes by caller_count + callee_count over the
// edges just written, returning the top limit.
func computeHotspots(edgeChanges []graph.EdgeChange, idByHash map[string]int64, fileIndexes []graph.FileIndex, limit int) []Hotspot {
	if len(edgeChanges) == 0 {
		return nil
	}

	hashByID := make(map[int64]string, len(idByHash))
	for hash, id := range idByHash {
		hashByID[id] = hash
	}

	nameByHash := make(map[string]string)
	fileByHash := make(map[string]string)
	for _, fi := range fileIndexes {
		for _, def := range fi.Definitions {
			nameByHash[def.Hash] = def.Name
			fileByHash[def.Hash] = fi.Path
		}
	}

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	for _, c := range edgeChanges {
		if c.Op != graph.OpAdd || c.Edge.Kind != graph.EdgeCalls {
			continue
		}
		sourceHash := hashByID[c.Edge.SourceID]
		targetHash := hashByID[c.Edge.TargetID]
		if sourceHash != "" {
			callerCount[sourceHash]++
		}
		if targetHash != "" {
			calleeCount[targetHash]++
		}
	}

	seen := make(map[string]bool)
	hotspots := make([]Hotspot, 0)
	for hash := range callerCount {
		if seen[hash] {
			continue
		}
		seen[hash] = true
		hotspots = append(hotspots, Hotspot{
			Hash:        hash,
			Name:        nameByHash[hash],
			FilePath:    fileByHash[hash],
			CallerCount: callerCount[hash],
			CalleeCount: calleeCount[hash],
		})
	}
	for hash := range calleeCount {
		if seen[hash] {
			continue
		}
		seen[hash] = true
		hotspots = append(hotspots, Hotspot{
			Hash:        hash,
			Name:        nameByHash[hash],
			FilePath:    fileByHash[hash],
			CallerCount: callerCount[hash],
			CalleeCount: calleeCount[hash],
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		si := hotspots[i].CallerCount + hotspots[i].CalleeCount
		sj := hotspots[j].CallerCount + hotspots[j].CalleeCount
		if si != sj {
			return si > sj
		}
		return hotspots[i].Hash < hotspots[j].Hash
	})

	if len(hotspots) > limit {
		hotspots = hotspots[:limit]
	}
	return hotspots
}
