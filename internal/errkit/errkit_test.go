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

package errkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHumanIncludesSuggestion(t *testing.T) {
	e := New("graph not found").WithDetail("no .keel/graph.db").WithSuggestion("run `keel map` first")
	out := e.Format(false)
	assert.Contains(t, out, "graph not found")
	assert.Contains(t, out, "run `keel map` first")
}

func TestFormatJSONRoundTrips(t *testing.T) {
	e := New("bad input").WithDetail("hash not found")
	out := e.Format(true)
	assert.Contains(t, out, `"error":"bad input"`)
	assert.Contains(t, out, `"detail":"hash not found"`)
}

func TestUninitializedAndMissingGraph(t *testing.T) {
	assert.Contains(t, Uninitialized().Format(false), "keel init")
	assert.Contains(t, MissingGraph().Format(false), "keel map")
}
