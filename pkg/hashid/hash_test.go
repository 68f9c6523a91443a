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

package hashid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeIsDeterministic(t *testing.T) {
	h1 := Compute("func foo(x int) int", "return x + 1", "Adds one")
	h2 := Compute("func foo(x int) int", "return x + 1", "Adds one")
	assert.Equal(t, h1, h2)
}

func TestComputeLengthAndAlphabet(t *testing.T) {
	h := Compute("func bar()", "{}", "")
	assert.Len(t, h, Length)
	for _, c := range h {
		assert.Contains(t, base62Chars, string(c))
	}
}

func TestComputeChangesWithSignature(t *testing.T) {
	h1 := Compute("func foo(x int32) int32", "x + 1", "")
	h2 := Compute("func foo(x int64) int64", "x + 1", "")
	assert.NotEqual(t, h1, h2)
}

func TestComputeChangesWithBody(t *testing.T) {
	h1 := Compute("func foo(x int) int", "x + 1", "")
	h2 := Compute("func foo(x int) int", "x + 2", "")
	assert.NotEqual(t, h1, h2)
}

func TestComputeChangesWithDocstring(t *testing.T) {
	h1 := Compute("func foo()", "{}", "Does X")
	h2 := Compute("func foo()", "{}", "Does Y")
	assert.NotEqual(t, h1, h2)
}

func TestComputeDisambiguatedDiffers(t *testing.T) {
	h1 := Compute("func foo()", "{}", "")
	h2 := ComputeDisambiguated("func foo()", "{}", "", "src/a.go")
	assert.NotEqual(t, h1, h2)
}

func TestZeroValuePadding(t *testing.T) {
	encoded := base62Encode(0)
	assert.Len(t, encoded, Length)
	for _, c := range encoded {
		assert.Equal(t, byte('0'), byte(c))
	}
}
