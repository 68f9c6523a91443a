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

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	result := &CompileResult{
		Errors: []Violation{
			{Code: "E001", File: "a.go", Line: 10, Hash: "abc"},
		},
		Warnings: []Violation{
			{Code: "W001", File: "b.go", Line: 5, Hash: "def"},
		},
	}

	snap := SnapshotFromResult(result)
	require.NoError(t, SaveSnapshot(dir, snap))

	loaded, err := LoadSnapshot(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.Errors, loaded.Errors)
	assert.Equal(t, snap.Warnings, loaded.Warnings)
}

func TestLoadSnapshotMissing(t *testing.T) {
	dir := t.TempDir()
	loaded, err := LoadSnapshot(dir)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestComputeDeltaNoPrevious(t *testing.T) {
	result := &CompileResult{
		Errors: []Violation{{Code: "E001", File: "a.go", Line: 1, Hash: "h1"}},
	}
	delta := ComputeDelta(nil, result)
	assert.Len(t, delta.NewErrors, 1)
	assert.Empty(t, delta.ResolvedErrors)
	assert.Equal(t, 1, delta.NetErrors)
	assert.Equal(t, PressureLow, delta.Pressure)
}

func TestComputeDeltaNewAndResolved(t *testing.T) {
	previous := &graph.Snapshot{
		Errors: []graph.ViolationKey{
			{Code: "E001", File: "old.go", Line: 1, Hash: "stale"},
		},
	}
	current := &CompileResult{
		Errors: []Violation{
			{Code: "E002", File: "new.go", Line: 2, Hash: "fresh"},
		},
	}

	delta := ComputeDelta(previous, current)
	assert.Len(t, delta.NewErrors, 1)
	assert.Equal(t, "fresh", delta.NewErrors[0].Hash)
	assert.Len(t, delta.ResolvedErrors, 1)
	assert.Equal(t, "stale", delta.ResolvedErrors[0].Hash)
	assert.Equal(t, 0, delta.NetErrors)
}

func TestComputeDeltaUnchanged(t *testing.T) {
	key := graph.ViolationKey{Code: "E001", File: "a.go", Line: 1, Hash: "same"}
	previous := &graph.Snapshot{Errors: []graph.ViolationKey{key}}
	current := &CompileResult{
		Errors: []Violation{{Code: key.Code, File: key.File, Line: key.Line, Hash: key.Hash}},
	}

	delta := ComputeDelta(previous, current)
	assert.Empty(t, delta.NewErrors)
	assert.Empty(t, delta.ResolvedErrors)
	assert.Equal(t, 0, delta.NetErrors)
}

func TestComputeDeltaHighPressure(t *testing.T) {
	var errs []Violation
	for i := 0; i < 7; i++ {
		errs = append(errs, Violation{Code: "E001", File: "a.go", Line: i, Hash: "h"})
	}
	delta := ComputeDelta(nil, &CompileResult{Errors: errs})
	assert.Equal(t, PressureHigh, delta.Pressure)
	assert.Equal(t, 7, delta.TotalErrors)
}
