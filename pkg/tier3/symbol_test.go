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
)

func TestParseScipSymbolEmptyReturnsFalse(t *testing.T) {
	_, ok := ParseScipSymbol("")
	assert.False(t, ok)
}

func TestParseScipSymbolTooFewPartsReturnsFalse(t *testing.T) {
	_, ok := ParseScipSymbol("scip-typescript npm pkg 1.0.0")
	assert.False(t, ok)
}

func TestParseScipSymbolValidFields(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-typescript npm my-pkg 1.0.0 src/index.ts/myFunc#")
	require.True(t, ok)
	assert.Equal(t, "scip-typescript", sym.Scheme)
	assert.Equal(t, "npm", sym.Manager)
	assert.Equal(t, "my-pkg", sym.PackageName)
	assert.Equal(t, "1.0.0", sym.Version)
	assert.NotEmpty(t, sym.Descriptors)
}

func TestSymbolNameTerm(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-typescript npm pkg 1.0.0 src/index.ts/myFunc#")
	require.True(t, ok)
	assert.Equal(t, "myFunc", SymbolName(sym))
}

func TestSymbolNameMethod(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-typescript npm pkg 1.0.0 src/index.ts/MyClass#render().")
	require.True(t, ok)
	assert.Equal(t, "render", SymbolName(sym))
}

func TestSymbolNameTypeParam(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-typescript npm pkg 1.0.0 src/foo.ts/Container#T[]")
	require.True(t, ok)
	assert.Equal(t, "T", SymbolName(sym))
}

func TestSymbolNameNamespace(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-go go pkg v1.0.0 github.com/foo/bar.")
	require.True(t, ok)
	assert.Equal(t, "bar", SymbolName(sym))
}

func TestSymbolNameEmptyPath(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-go go pkg v1.0.0 .")
	require.True(t, ok)
	assert.Equal(t, "", SymbolName(sym))
}

func TestSymbolMatchesName(t *testing.T) {
	sym, ok := ParseScipSymbol("scip-typescript npm pkg 1.0.0 src/index.ts/myFunc#")
	require.True(t, ok)
	assert.True(t, SymbolMatchesName(sym, "myFunc"))
	assert.False(t, SymbolMatchesName(sym, "otherFunc"))
}
