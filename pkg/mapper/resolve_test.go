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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/tier3"
)

// stubResolver never resolves cross-file references; it exists only so
// registry.For(language) returns a non-nil resolver for Pass 2 to reach.
type stubResolver struct {
	language string
	target   parser.ResolvedTarget
	confidence float64
	ok       bool
}

func (s *stubResolver) Language() string { return s.language }

func (s *stubResolver) ParseFile(path string, content []byte) (graph.FileIndex, error) {
	return graph.FileIndex{Path: path, Language: s.language}, nil
}

func (s *stubResolver) ResolveCrossFile(ref graph.Reference, fromFile graph.FileIndex, index *parser.NameIndex) (parser.ResolvedTarget, float64, bool) {
	return s.target, s.confidence, s.ok
}

func TestResolveReferencesSameFile(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path:     "a.go",
			Language: "go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-caller", Name: "caller", Kind: graph.KindFunction},
				{Hash: "hash-callee", Name: "callee", Kind: graph.KindFunction},
			},
			References: []graph.Reference{
				{Name: "callee", Line: 5, Kind: graph.RefCall, CallerHash: "hash-caller"},
			},
		},
	}
	index := parser.NewNameIndex(fileIndexes)

	edges := resolveReferences(fileIndexes, index, parser.NewRegistry(), tier3.NewRegistry())

	require.Len(t, edges, 1)
	assert.Equal(t, "hash-caller", edges[0].sourceHash)
	assert.Equal(t, "hash-callee", edges[0].targetHash)
	assert.Equal(t, graph.EdgeCalls, edges[0].kind)
	assert.Equal(t, tier1Confidence, edges[0].confidence)
	assert.Equal(t, "hash-callee", fileIndexes[0].References[0].ResolvedHash)
}

func TestResolveReferencesSameFileAllowsRecursiveSelfCall(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path:     "a.go",
			Language: "go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-self", Name: "recurse", Kind: graph.KindFunction},
			},
			References: []graph.Reference{
				{Name: "recurse", Line: 3, Kind: graph.RefCall, CallerHash: "hash-self"},
			},
		},
	}
	index := parser.NewNameIndex(fileIndexes)

	edges := resolveReferences(fileIndexes, index, parser.NewRegistry(), tier3.NewRegistry())

	require.Len(t, edges, 1)
	assert.Equal(t, "hash-self", edges[0].sourceHash)
	assert.Equal(t, "hash-self", edges[0].targetHash)
}

func TestResolveReferencesSkipsNonCallReferences(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path: "a.go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-callee", Name: "callee"},
			},
			References: []graph.Reference{
				{Name: "callee", Line: 1, Kind: graph.RefImport},
			},
		},
	}
	index := parser.NewNameIndex(fileIndexes)

	edges := resolveReferences(fileIndexes, index, parser.NewRegistry(), tier3.NewRegistry())

	assert.Empty(t, edges)
}

func TestResolveReferencesCrossFileViaResolver(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path:     "caller.go",
			Language: "go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-caller", Name: "caller"},
			},
			References: []graph.Reference{
				{Name: "helper", Line: 10, Kind: graph.RefCall, CallerHash: "hash-caller"},
			},
		},
		{
			Path:     "callee.go",
			Language: "go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-helper", Name: "helper"},
			},
		},
	}
	index := parser.NewNameIndex(fileIndexes)
	resolver := &stubResolver{
		language:   "go",
		target:     parser.ResolvedTarget{File: "callee.go", Name: "helper"},
		confidence: 0.8,
		ok:         true,
	}
	registry := parser.NewRegistry(resolver)

	edges := resolveReferences(fileIndexes, index, registry, tier3.NewRegistry())

	require.Len(t, edges, 1)
	assert.Equal(t, "hash-helper", edges[0].targetHash)
	assert.Equal(t, 0.8, edges[0].confidence)
	assert.Equal(t, "hash-helper", fileIndexes[0].References[0].ResolvedHash)
}

func TestResolveReferencesFallsBackToTier3(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path:     "caller.rb",
			Language: "ruby",
			Definitions: []graph.PendingNode{
				{Hash: "hash-caller", Name: "caller"},
			},
			References: []graph.Reference{
				{Name: "render", Line: 20, Kind: graph.RefCall, CallerHash: "hash-caller"},
			},
		},
		{
			Path:     "view.rb",
			Language: "ruby",
			Definitions: []graph.PendingNode{
				{Hash: "hash-render", Name: "render"},
			},
		},
	}
	index := parser.NewNameIndex(fileIndexes)

	tier3Registry := tier3.NewRegistry()
	tier3Registry.Register(&fakeTier3Provider{
		available: true,
		result: tier3.Result{
			Resolved:   true,
			TargetFile: "view.rb",
			TargetName: "render",
			Confidence: 0.85,
		},
	})

	edges := resolveReferences(fileIndexes, index, parser.NewRegistry(), tier3Registry)

	require.Len(t, edges, 1)
	assert.Equal(t, "hash-render", edges[0].targetHash)
	assert.Equal(t, 0.85, edges[0].confidence)
}

func TestResolveReferencesTier3SkipsAlreadyResolvedLines(t *testing.T) {
	fileIndexes := []graph.FileIndex{
		{
			Path:     "a.go",
			Language: "go",
			Definitions: []graph.PendingNode{
				{Hash: "hash-caller", Name: "caller"},
				{Hash: "hash-callee", Name: "callee"},
			},
			References: []graph.Reference{
				{Name: "callee", Line: 7, Kind: graph.RefCall, CallerHash: "hash-caller"},
			},
		},
	}
	index := parser.NewNameIndex(fileIndexes)

	tier3Registry := tier3.NewRegistry()
	spy := &fakeTier3Provider{
		available: true,
		result:    tier3.Result{Resolved: true, TargetFile: "a.go", TargetName: "callee", Confidence: 0.5},
	}
	tier3Registry.Register(spy)

	edges := resolveReferences(fileIndexes, index, parser.NewRegistry(), tier3Registry)

	require.Len(t, edges, 1)
	// Pass 1 already resolved this line at tier1Confidence; Tier 3 must not
	// have been consulted for it.
	assert.Equal(t, tier1Confidence, edges[0].confidence)
	assert.Zero(t, spy.calls)
}

type fakeTier3Provider struct {
	available bool
	result    tier3.Result
	calls     int32
}

func (f *fakeTier3Provider) Language() string { return "" }
func (f *fakeTier3Provider) Available() bool  { return f.available }
func (f *fakeTier3Provider) Resolve(tier3.CallSite) tier3.Result {
	atomic.AddInt32(&f.calls, 1)
	return f.result
}
func (f *fakeTier3Provider) InvalidateFile(string) {}
func (f *fakeTier3Provider) Shutdown()             {}
