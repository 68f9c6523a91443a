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

package tier3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// encodeOccurrence builds a minimal SCIP Occurrence message: a 3-element
// range (startLine, startCol, endCol), a symbol string, and optional roles.
func encodeOccurrence(startLine int64, symbol string, roles uint64) []byte {
	var rangeBytes []byte
	rangeBytes = protowire.AppendVarint(rangeBytes, uint64(startLine))
	rangeBytes = protowire.AppendVarint(rangeBytes, 0)
	rangeBytes = protowire.AppendVarint(rangeBytes, 3)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, rangeBytes)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, symbol)
	if roles != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, roles)
	}
	return b
}

func encodeDocument(relativePath string, occurrences ...[]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, relativePath)
	for _, occ := range occurrences {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, occ)
	}
	return b
}

func encodeIndex(documents ...[]byte) []byte {
	var b []byte
	for _, doc := range documents {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, doc)
	}
	return b
}

func TestScipProviderUnavailableBeforeLoad(t *testing.T) {
	p := NewScipProvider("go")
	assert.False(t, p.Available())
	res := p.Resolve(CallSite{FilePath: "pkg/bar.go", Line: 6, CalleeName: "bar"})
	assert.False(t, res.Resolved)
}

func TestScipProviderResolvesDefinitionSite(t *testing.T) {
	symbol := "scip-go go pkg v1.0.0 github.com/foo/bar()."
	defOcc := encodeOccurrence(1, symbol, scipRoleDefinition)
	refOcc := encodeOccurrence(5, symbol, 0)
	doc := encodeDocument("pkg/bar.go", defOcc, refOcc)
	data := encodeIndex(doc)

	p := NewScipProvider("go")
	require.NoError(t, p.LoadIndex(data))
	assert.True(t, p.Available())

	res := p.Resolve(CallSite{FilePath: "pkg/bar.go", Line: 6, CalleeName: "bar"})
	require.True(t, res.Resolved)
	assert.Equal(t, "pkg/bar.go", res.TargetFile)
	assert.Equal(t, "bar", res.TargetName)
	assert.InDelta(t, 0.95, res.Confidence, 0.0001)
	assert.Equal(t, "scip", res.Provider)
}

func TestScipProviderMissesWrongName(t *testing.T) {
	symbol := "scip-go go pkg v1.0.0 github.com/foo/bar()."
	defOcc := encodeOccurrence(1, symbol, scipRoleDefinition)
	refOcc := encodeOccurrence(5, symbol, 0)
	data := encodeIndex(encodeDocument("pkg/bar.go", defOcc, refOcc))

	p := NewScipProvider("go")
	require.NoError(t, p.LoadIndex(data))

	res := p.Resolve(CallSite{FilePath: "pkg/bar.go", Line: 6, CalleeName: "baz"})
	assert.False(t, res.Resolved)
}

func TestScipProviderInvalidateFileIsNoOp(t *testing.T) {
	symbol := "scip-go go pkg v1.0.0 github.com/foo/bar()."
	defOcc := encodeOccurrence(1, symbol, scipRoleDefinition)
	refOcc := encodeOccurrence(5, symbol, 0)
	data := encodeIndex(encodeDocument("pkg/bar.go", defOcc, refOcc))

	p := NewScipProvider("go")
	require.NoError(t, p.LoadIndex(data))
	p.InvalidateFile("pkg/bar.go")

	res := p.Resolve(CallSite{FilePath: "pkg/bar.go", Line: 6, CalleeName: "bar"})
	assert.True(t, res.Resolved)
}

func TestScipProviderShutdownClearsIndex(t *testing.T) {
	symbol := "scip-go go pkg v1.0.0 github.com/foo/bar()."
	defOcc := encodeOccurrence(1, symbol, scipRoleDefinition)
	data := encodeIndex(encodeDocument("pkg/bar.go", defOcc))

	p := NewScipProvider("go")
	require.NoError(t, p.LoadIndex(data))
	p.Shutdown()
	assert.False(t, p.Available())
}
