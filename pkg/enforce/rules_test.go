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

package enforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
)

// fakeStore is an in-memory GraphStore used only by rule tests.
type fakeStore struct {
	byHash    map[string]*graph.Node
	byID      map[int64]*graph.Node
	byFile    map[string][]*graph.Node
	byName    map[string][]*graph.Node
	modules   []*graph.Node
	profiles  map[int64]*graph.ModuleProfile
	edgesIn   map[int64][]*graph.Edge
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byHash:   make(map[string]*graph.Node),
		byID:     make(map[int64]*graph.Node),
		byFile:   make(map[string][]*graph.Node),
		byName:   make(map[string][]*graph.Node),
		profiles: make(map[int64]*graph.ModuleProfile),
		edgesIn:  make(map[int64][]*graph.Edge),
	}
}

func (f *fakeStore) add(n *graph.Node) {
	f.byHash[n.Hash] = n
	f.byID[n.ID] = n
	f.byFile[n.FilePath] = append(f.byFile[n.FilePath], n)
	f.byName[n.Name] = append(f.byName[n.Name], n)
	if n.Kind == graph.KindModule {
		f.modules = append(f.modules, n)
	}
}

func (f *fakeStore) GetNode(hash string) (*graph.Node, error) {
	n, ok := f.byHash[hash]
	if !ok {
		return nil, &graph.NodeNotFoundError{Identifier: hash}
	}
	return n, nil
}

func (f *fakeStore) GetNodeByID(id int64) (*graph.Node, error) {
	n, ok := f.byID[id]
	if !ok {
		return nil, &graph.NodeNotFoundError{Identifier: "id"}
	}
	return n, nil
}

func (f *fakeStore) GetNodesInFile(path string) ([]*graph.Node, error) {
	return f.byFile[path], nil
}

func (f *fakeStore) FindNodesByName(name string, kindFilter graph.NodeKind, moduleFilter int64) ([]*graph.Node, error) {
	var out []*graph.Node
	for _, n := range f.byName[name] {
		if kindFilter != "" && n.Kind != kindFilter {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeStore) GetAllModules() ([]*graph.Node, error) {
	return f.modules, nil
}

func (f *fakeStore) GetModuleProfile(moduleID int64) (*graph.ModuleProfile, error) {
	p, ok := f.profiles[moduleID]
	if !ok {
		return nil, &graph.NodeNotFoundError{Identifier: "profile"}
	}
	return p, nil
}

func (f *fakeStore) GetEdges(nodeID int64, direction graph.EdgeDirection) ([]*graph.Edge, error) {
	return f.edgesIn[nodeID], nil
}

func TestCountParams(t *testing.T) {
	assert.Equal(t, 0, countParams("func Foo()"))
	assert.Equal(t, 1, countParams("func Foo(a int)"))
	assert.Equal(t, 2, countParams("def bar(a, b)"))
	assert.Equal(t, 0, countParams("no parens"))
}

func TestExtractPrefix(t *testing.T) {
	assert.Equal(t, "handle", extractPrefix("handleRequest"))
	assert.Equal(t, "process", extractPrefix("process_order"))
	assert.Equal(t, "", extractPrefix("x"))
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, isTestFile("pkg/handler_test.go"))
	assert.False(t, isTestFile("pkg/handler.go"))
	assert.True(t, isTestFile("src/handler.spec.ts"))
}

func TestCheckSignatureBreakDetectsAffectedCaller(t *testing.T) {
	st := newFakeStore()
	target := &graph.Node{ID: 1, Hash: "oldhash123", Name: "target", FilePath: "a.ts", Kind: graph.KindFunction}
	st.add(target)
	caller := &graph.Node{ID: 2, Hash: "callerhash1", Name: "caller", FilePath: "b.ts", Kind: graph.KindFunction}
	st.add(caller)
	st.edgesIn[1] = []*graph.Edge{
		{SourceID: 2, TargetID: 1, Kind: graph.EdgeCalls, FilePath: "b.ts", Line: 10},
	}

	def := graph.PendingNode{Name: "target", Hash: "newhash456", Kind: graph.KindFunction, LineStart: 3}
	v, ok := checkSignatureBreak(st, "a.ts", def, target)
	require.True(t, ok)
	assert.Equal(t, CodeSignatureBreak, v.Code)
	require.Len(t, v.Affected, 1)
	assert.Equal(t, "caller", v.Affected[0].Name)
	assert.Equal(t, "b.ts", v.Affected[0].File)
}

func TestCheckSignatureBreakNoChangeNoViolation(t *testing.T) {
	st := newFakeStore()
	prev := &graph.Node{ID: 1, Hash: "samehash", Name: "f", FilePath: "a.go"}
	def := graph.PendingNode{Name: "f", Hash: "samehash"}
	_, ok := checkSignatureBreak(st, "a.go", def, prev)
	assert.False(t, ok)
}

func TestCheckMissingTypeHints(t *testing.T) {
	v, ok := checkMissingTypeHints("a.py", graph.PendingNode{Name: "untyped", TypeHintsPresent: false})
	require.True(t, ok)
	assert.Equal(t, CodeMissingTypes, v.Code)
	assert.NotEmpty(t, v.FixHint)

	_, ok = checkMissingTypeHints("a.py", graph.PendingNode{Name: "typed", TypeHintsPresent: true})
	assert.False(t, ok)
}

func TestCheckMissingDocstring(t *testing.T) {
	v, ok := checkMissingDocstring("a.py", graph.PendingNode{Name: "undocumented", HasDocstring: false})
	require.True(t, ok)
	assert.Equal(t, CodeMissingDoc, v.Code)

	_, ok = checkMissingDocstring("a.py", graph.PendingNode{Name: "documented", HasDocstring: true})
	assert.False(t, ok)
}

func TestCheckRemovedNodeWithLiveCallers(t *testing.T) {
	st := newFakeStore()
	removed := &graph.Node{ID: 5, Hash: "gonehash", Name: "gone", FilePath: "a.go", LineStart: 2}
	st.edgesIn[5] = []*graph.Edge{
		{SourceID: 9, TargetID: 5, Kind: graph.EdgeCalls, FilePath: "b.go", Line: 20},
	}
	st.add(&graph.Node{ID: 9, Name: "caller", FilePath: "b.go"})

	v, ok := checkRemovedNode(st, removed)
	require.True(t, ok)
	assert.Equal(t, CodeRemovedNode, v.Code)
	assert.Len(t, v.Affected, 1)
}

func TestCheckRemovedNodeNoCallersNoViolation(t *testing.T) {
	st := newFakeStore()
	removed := &graph.Node{ID: 5, Hash: "gonehash", Name: "gone", FilePath: "a.go"}
	_, ok := checkRemovedNode(st, removed)
	assert.False(t, ok)
}

func TestCheckArityMismatch(t *testing.T) {
	st := newFakeStore()
	st.add(&graph.Node{ID: 1, Hash: "barhash", Name: "bar", Signature: "def bar(a)"})

	ref := graph.Reference{Kind: graph.RefCall, ResolvedHash: "barhash", Line: 10, ArgCount: 2}
	v, ok := checkArityMismatch(st, "main.py", ref)
	require.True(t, ok)
	assert.Equal(t, CodeArityMismatch, v.Code)
	assert.Contains(t, v.Message, "1")
	assert.Contains(t, v.Message, "2")
}

func TestCheckArityMatchNoViolation(t *testing.T) {
	st := newFakeStore()
	st.add(&graph.Node{ID: 1, Hash: "barhash", Name: "bar", Signature: "def bar(a, b)"})
	ref := graph.Reference{Kind: graph.RefCall, ResolvedHash: "barhash", ArgCount: 2}
	_, ok := checkArityMismatch(st, "main.py", ref)
	assert.False(t, ok)
}

func TestCheckDuplicateNameDivergentSignature(t *testing.T) {
	st := newFakeStore()
	st.add(&graph.Node{ID: 1, Hash: "h1", Name: "Validate", FilePath: "pkg/a/a.go", Signature: "func Validate(x int) error", Kind: graph.KindFunction})

	def := graph.PendingNode{Name: "Validate", Signature: "func Validate(x string) bool", Kind: graph.KindFunction}
	v, ok := checkDuplicateName(st, "pkg/b/b.go", nil, def)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicateName, v.Code)
	require.NotNil(t, v.Existing)
	assert.Equal(t, "pkg/a/a.go", v.Existing.File)
}

func TestCheckDuplicateNameIdenticalSignatureNoViolation(t *testing.T) {
	st := newFakeStore()
	st.add(&graph.Node{ID: 1, Hash: "h1", Name: "Validate", FilePath: "pkg/a/a.go", Signature: "func Validate(x int) error", Kind: graph.KindFunction})
	def := graph.PendingNode{Name: "Validate", Signature: "func Validate(x int) error", Kind: graph.KindFunction}
	_, ok := checkDuplicateName(st, "pkg/b/b.go", nil, def)
	assert.False(t, ok)
}

func TestCheckFileAggregatesViolations(t *testing.T) {
	st := newFakeStore()
	idx := graph.FileIndex{
		Path: "svc.py",
		Definitions: []graph.PendingNode{
			{Name: "doStuff", Hash: "h1", Kind: graph.KindFunction, IsPublic: true, TypeHintsPresent: false, HasDocstring: false, LineStart: 1},
		},
	}
	violations := CheckFile(st, idx)
	require.Len(t, violations, 2)
	assert.Equal(t, CodeMissingTypes, violations[0].Code)
	assert.Equal(t, CodeMissingDoc, violations[1].Code)
}
