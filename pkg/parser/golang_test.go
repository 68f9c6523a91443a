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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/graph"
)

const goFixture = `package widgets

import (
	"fmt"
)

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}

func unexportedHelper(x int) int {
	return x * 2
}

type Server struct{}

// Start begins serving requests.
func (s *Server) Start() error {
	fmt.Println("starting")
	Add(1, 2)
	return nil
}
`

func TestGoResolverParseFileExtractsFunctions(t *testing.T) {
	r := NewGoResolver()
	idx, err := r.ParseFile("widgets.go", []byte(goFixture))
	require.NoError(t, err)
	require.Len(t, idx.Definitions, 3)

	var add, helper, start *graph.PendingNode
	for i := range idx.Definitions {
		switch idx.Definitions[i].Name {
		case "Add":
			add = &idx.Definitions[i]
		case "unexportedHelper":
			helper = &idx.Definitions[i]
		case "Start":
			start = &idx.Definitions[i]
		}
	}
	require.NotNil(t, add)
	require.NotNil(t, helper)
	require.NotNil(t, start)

	assert.True(t, add.IsPublic)
	assert.Equal(t, "Add returns the sum of a and b.", add.Docstring)
	assert.True(t, add.HasDocstring)
	assert.Equal(t, 2, add.ParamCount)
	assert.NotEmpty(t, add.Hash)
	assert.Len(t, add.Hash, 11)

	assert.False(t, helper.IsPublic)

	assert.True(t, start.IsPublic)
	assert.Contains(t, start.Signature, "(s *Server)")
}

func TestGoResolverParseFileExtractsCalls(t *testing.T) {
	r := NewGoResolver()
	idx, err := r.ParseFile("widgets.go", []byte(goFixture))
	require.NoError(t, err)

	var found bool
	for _, ref := range idx.References {
		if ref.Name == "Add" && ref.Kind == graph.RefCall {
			found = true
			assert.Equal(t, 2, ref.ArgCount)
		}
	}
	assert.True(t, found, "expected a call reference to Add")
}

func TestGoResolverParseFileExtractsImports(t *testing.T) {
	r := NewGoResolver()
	idx, err := r.ParseFile("widgets.go", []byte(goFixture))
	require.NoError(t, err)
	require.Len(t, idx.Imports, 1)
	assert.Equal(t, "fmt", idx.Imports[0].Source)
}

func TestGoResolverResolveCrossFileSamePackage(t *testing.T) {
	r := NewGoResolver()
	other := graph.FileIndex{
		Path: "pkg/widgets/helper.go",
		Definitions: []graph.PendingNode{
			{Name: "Shared", Hash: "h1"},
		},
	}
	from := graph.FileIndex{Path: "pkg/widgets/main.go"}
	index := NewNameIndex([]graph.FileIndex{other, from})

	ref := graph.Reference{Name: "Shared", Kind: graph.RefCall}
	target, confidence, ok := r.ResolveCrossFile(ref, from, index)
	require.True(t, ok)
	assert.Equal(t, "pkg/widgets/helper.go", target.File)
	assert.InDelta(t, 0.8, confidence, 0.0001)
}

func TestCountGoParamsMultiName(t *testing.T) {
	r := NewGoResolver()
	idx, err := r.ParseFile("m.go", []byte("package m\nfunc Sum(a, b, c int) int { return a+b+c }\n"))
	require.NoError(t, err)
	require.Len(t, idx.Definitions, 1)
	assert.Equal(t, 3, idx.Definitions[0].ParamCount)
}

func TestIsGoExported(t *testing.T) {
	assert.True(t, isGoExported("Foo"))
	assert.False(t, isGoExported("foo"))
	assert.False(t, isGoExported(""))
}
