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

package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCompileAccumulates(t *testing.T) {
	r := New()
	r.RecordCompile(10*time.Millisecond, 2, 1)
	r.RecordCompile(30*time.Millisecond, 0, 3)

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.Compiles)
	assert.Equal(t, int64(2), snap.TotalErrors)
	assert.Equal(t, int64(4), snap.TotalWarnings)
	assert.InDelta(t, 20.0, snap.AvgCompileMillis, 0.5)
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	r := New()
	r.RecordCompile(5*time.Millisecond, 1, 0)
	r.RecordSessionStart()
	require.NoError(t, r.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	snap := loaded.Snapshot()
	assert.Equal(t, int64(1), snap.Compiles)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, int64(1), snap.SessionsStarted)
}

func TestLoadMissingFileIsZeroed(t *testing.T) {
	r, err := Load(t.TempDir())
	require.NoError(t, err)
	snap := r.Snapshot()
	assert.Equal(t, int64(0), snap.Compiles)
}
