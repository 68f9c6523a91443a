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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/tier3"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteAllWritesModuleAndDefinitionNodes(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st}

	fileIndexes := []graph.FileIndex{
		{
			Path: "pkg/orders/service.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-caller", Name: "CreateOrder", Kind: graph.KindFunction, LineStart: 10, LineEnd: 20},
				{Hash: "hash-callee", Name: "validate", Kind: graph.KindFunction, LineStart: 22, LineEnd: 30},
			},
		},
	}
	edges := []pendingEdge{
		{sourceHash: "hash-caller", targetHash: "hash-callee", kind: graph.EdgeCalls, filePath: "pkg/orders/service.go", line: 12, confidence: 0.95},
	}

	summary, err := m.writeAll(fileIndexes, edges)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.definitionsWritten)
	assert.Equal(t, 1, summary.edgesWritten)
	assert.Equal(t, 1, summary.modulesProfiled)

	nodes, err := st.GetNodesInFile("pkg/orders/service.go")
	require.NoError(t, err)
	require.Len(t, nodes, 3) // 1 module node + 2 definitions

	var moduleNodeFound bool
	for _, n := range nodes {
		if n.Kind == graph.KindModule {
			moduleNodeFound = true
			assert.Equal(t, "service", n.Name)
		}
	}
	assert.True(t, moduleNodeFound)

	caller, err := st.GetNode("hash-caller")
	require.NoError(t, err)
	require.NotNil(t, caller)
	assert.NotZero(t, caller.ModuleID)
}

func TestWriteAllEmptyInputIsNoOp(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st}

	summary, err := m.writeAll(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.definitionsWritten)
	assert.Zero(t, summary.edgesWritten)
}

func TestWriteAllDropsEdgesWithUnresolvedEndpoints(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st}

	fileIndexes := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-a", Name: "A", Kind: graph.KindFunction},
			},
		},
	}
	edges := []pendingEdge{
		{sourceHash: "hash-a", targetHash: "hash-missing", kind: graph.EdgeCalls, filePath: "a.go", line: 1, confidence: 0.9},
	}

	summary, err := m.writeAll(fileIndexes, edges)
	require.NoError(t, err)
	assert.Zero(t, summary.edgesWritten)
}

func TestWriteAllRemovesDefinitionNoLongerPresent(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st}

	first := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-a", Name: "A", Kind: graph.KindFunction, LineStart: 1, LineEnd: 5},
				{Hash: "hash-b", Name: "B", Kind: graph.KindFunction, LineStart: 7, LineEnd: 12},
			},
		},
	}
	_, err := m.writeAll(first, nil)
	require.NoError(t, err)

	// B is deleted from the source file on the next parse.
	second := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-a", Name: "A", Kind: graph.KindFunction, LineStart: 1, LineEnd: 5},
			},
		},
	}
	_, err = m.writeAll(second, nil)
	require.NoError(t, err)

	nodes, err := st.GetNodesInFile("a.go")
	require.NoError(t, err)
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	assert.NotContains(t, names, "B")
	assert.Contains(t, names, "A")
}

func TestWriteAllTracksRenameIdentityOnHashChange(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st}

	first := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-v1", Name: "A", Kind: graph.KindFunction, LineStart: 1, LineEnd: 5},
			},
		},
	}
	_, err := m.writeAll(first, nil)
	require.NoError(t, err)

	// A's body changes, so its content hash moves, but the name is the same.
	second := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-v2", Name: "A", Kind: graph.KindFunction, LineStart: 1, LineEnd: 6},
			},
		},
	}
	_, err = m.writeAll(second, nil)
	require.NoError(t, err)

	updated, err := st.GetNode("hash-v2")
	require.NoError(t, err)
	assert.Equal(t, []string{"hash-v1"}, updated.PreviousHashes)

	_, err = st.GetNode("hash-v1")
	assert.Error(t, err, "the superseded hash row should no longer exist")
}

func TestWriteParsedPersistsNodesAndEdges(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st, Registry: parser.NewRegistry(), Tier3: tier3.NewRegistry()}

	fileIndexes := []graph.FileIndex{
		{
			Path: "pkg/orders/service.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-caller", Name: "CreateOrder", Kind: graph.KindFunction, LineStart: 10, LineEnd: 20},
			},
		},
	}

	err := m.WriteParsed(fileIndexes)
	require.NoError(t, err)

	nodes, err := st.GetNodesInFile("pkg/orders/service.go")
	require.NoError(t, err)
	assert.Len(t, nodes, 2) // 1 module node + 1 definition
}

func TestWriteParsedEmptyInputIsNoOp(t *testing.T) {
	st := openTestStore(t)
	m := &Mapper{Store: st, Registry: parser.NewRegistry(), Tier3: tier3.NewRegistry()}

	err := m.WriteParsed(nil)
	require.NoError(t, err)
}

func TestModuleNodeNameStripsExtension(t *testing.T) {
	fi := graph.FileIndex{Path: "internal/routing/router.go"}
	n := moduleNode(fi)
	assert.Equal(t, "router", n.Name)
	assert.Equal(t, graph.KindModule, n.Kind)
	assert.Equal(t, 1, n.LineStart)
}

func TestDefinitionNodeDefaultsKindToFunction(t *testing.T) {
	def := graph.PendingNode{Hash: "h", Name: "f"}
	n := definitionNode("a.go", def, 7)
	assert.Equal(t, graph.KindFunction, n.Kind)
	assert.Equal(t, int64(7), n.ModuleID)
}
