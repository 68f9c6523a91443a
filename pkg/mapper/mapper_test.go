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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/parser"
)

const sampleGoSource = `package sample

func helper() int {
	return 1
}

func entrypoint() int {
	return helper()
}
`

func TestMapEndToEnd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.go"), []byte(sampleGoSource), 0o644))

	st := openTestStore(t)
	registry := parser.NewRegistry(parser.NewGoResolver())
	m := New(registry, nil, st, nil)

	var progressCalls int
	result, err := m.Map(context.Background(), Options{
		Root: root,
		OnProgress: func(current, total int64, phase string) {
			progressCalls++
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Zero(t, result.ParseErrors)
	assert.Equal(t, 2, result.DefinitionsWritten)
	assert.Equal(t, 1, result.EdgesWritten)
	assert.Equal(t, 1, result.ModulesProfiled)
	assert.NotZero(t, progressCalls)
	require.Len(t, result.Hotspots, 2)
}

func TestMapEmptyRootProducesEmptyResult(t *testing.T) {
	root := t.TempDir()
	st := openTestStore(t)
	registry := parser.NewRegistry(parser.NewGoResolver())
	m := New(registry, nil, st, nil)

	result, err := m.Map(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Zero(t, result.FilesProcessed)
	assert.Zero(t, result.DefinitionsWritten)
}
