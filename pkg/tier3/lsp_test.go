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
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePathToURIRoundtrip(t *testing.T) {
	path := "/home/user/project/src/main.go"
	uri := filePathToURI(path)
	assert.Equal(t, "file:///home/user/project/src/main.go", uri)

	recovered, ok := uriToFilePath(uri)
	require.True(t, ok)
	assert.Equal(t, path, recovered)
}

func TestUriToFilePathRejectsNonFileScheme(t *testing.T) {
	_, ok := uriToFilePath("http://example.com/foo")
	assert.False(t, ok)
}

func TestLSPMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"jsonrpc":"2.0","id":1,"result":null}`)
	require.NoError(t, writeLSPMessage(&buf, payload))

	got, err := readLSPMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFirstLSPLocationSingleObject(t *testing.T) {
	raw := []byte(`{"uri":"file:///a/b.go","range":{"start":{"line":3,"character":0},"end":{"line":3,"character":5}}}`)
	loc, ok := firstLSPLocation(raw)
	require.True(t, ok)
	assert.Equal(t, "file:///a/b.go", loc.URI)
	assert.Equal(t, 3, loc.Range.Start.Line)
}

func TestFirstLSPLocationArray(t *testing.T) {
	raw := []byte(`[{"uri":"file:///a/b.go","range":{"start":{"line":1,"character":0},"end":{"line":1,"character":1}}}]`)
	loc, ok := firstLSPLocation(raw)
	require.True(t, ok)
	assert.Equal(t, "file:///a/b.go", loc.URI)
}

func TestFirstLSPLocationEmptyArray(t *testing.T) {
	_, ok := firstLSPLocation([]byte(`[]`))
	assert.False(t, ok)
}

func TestLspProviderUnavailableWithoutCommand(t *testing.T) {
	p := NewLspProvider("go", nil, "/tmp/project")
	assert.False(t, p.Available())

	res := p.Resolve(CallSite{FilePath: "main.go", Line: 10, CalleeName: "Run"})
	assert.False(t, res.Resolved)
	assert.False(t, p.Available())
}

func TestLspProviderInvalidateFileIsNoOp(t *testing.T) {
	p := NewLspProvider("go", nil, "/tmp/project")
	p.InvalidateFile("main.go")
	assert.False(t, p.Available())
}

func TestLspProviderShutdownBeforeStartIsNoOp(t *testing.T) {
	p := NewLspProvider("go", nil, "/tmp/project")
	p.Shutdown()
	assert.False(t, p.Available())
}
