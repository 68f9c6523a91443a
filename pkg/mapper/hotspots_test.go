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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
)

func TestComputeHotspotsEmptyEdgesReturnsNil(t *testing.T) {
	hotspots := computeHotspots(nil, map[string]int64{}, nil, 10)
	assert.Nil(t, hotspots)
}

func TestComputeHotspotsRanksByCallerPlusCalleeCount(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path: "core.go",
			Definitions: []graph.PendingNode{
				{Hash: "hub", Name: "Hub"},
				{Hash: "leaf-a", Name: "LeafA"},
				{Hash: "leaf-b", Name: "LeafB"},
			},
		},
	}
	idByHash := map[string]int64{"hub": 1, "leaf-a": 2, "leaf-b": 3}
	edgeChanges := []graph.EdgeChange{
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 2, TargetID: 1, Kind: graph.EdgeCalls}},
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 3, TargetID: 1, Kind: graph.EdgeCalls}},
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 1, TargetID: 2, Kind: graph.EdgeCalls}},
	}

	hotspots := computeHotspots(edgeChanges, idByHash, fileIndexes, 10)

	require.NotEmpty(t, hotspots)
	assert.Equal(t, "hub", hotspots[0].Hash)
	assert.Equal(t, "Hub", hotspots[0].Name)
	assert.Equal(t, "core.go", hotspots[0].FilePath)
	assert.Equal(t, 1, hotspots[0].CallerCount)
	assert.Equal(t, 2, hotspots[0].CalleeCount)
}

func TestComputeHotspotsIgnoresNonCallEdges(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "a", Name: "A"},
				{Hash: "b", Name: "B"},
			},
		},
	}
	idByHash := map[string]int64{"a": 1, "b": 2}
	edgeChanges := []graph.EdgeChange{
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 1, TargetID: 2, Kind: graph.EdgeImports}},
	}

	hotspots := computeHotspots(edgeChanges, idByHash, fileIndexes, 10)

	assert.Empty(t, hotspots)
}

func TestComputeHotspotsRespectsLimit(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "a", Name: "A"},
				{Hash: "b", Name: "B"},
				{Hash: "c", Name: "C"},
			},
		},
	}
	idByHash := map[string]int64{"a": 1, "b": 2, "c": 3}
	edgeChanges := []graph.EdgeChange{
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 1, TargetID: 2, Kind: graph.EdgeCalls}},
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 2, TargetID: 3, Kind: graph.EdgeCalls}},
		{Op: graph.OpAdd, Edge: graph.Edge{SourceID: 3, TargetID: 1, Kind: graph.EdgeCalls}},
	}

	hotspots := computeHotspots(edgeChanges, idByHash, fileIndexes, 2)

	assert.Len(t, hotspots, 2)
}
