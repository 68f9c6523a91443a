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
)

func TestEscalationSequence(t *testing.T) {
	cb := NewCircuitBreaker(3)
	assert.Equal(t, ActionFixHint, cb.RecordFailure("E001", "abc"))
	assert.Equal(t, ActionWiderContext, cb.RecordFailure("E001", "abc"))
	assert.Equal(t, ActionDowngrade, cb.RecordFailure("E001", "abc"))
	assert.True(t, cb.IsDowngraded("E001", "abc"))
}

func TestSuccessResetsCounter(t *testing.T) {
	cb := NewCircuitBreaker(3)
	cb.RecordFailure("E001", "abc")
	cb.RecordFailure("E001", "abc")
	cb.RecordSuccess("E001", "abc")
	assert.Equal(t, uint32(0), cb.FailureCount("E001", "abc"))
	assert.False(t, cb.IsDowngraded("E001", "abc"))
	assert.Equal(t, ActionFixHint, cb.RecordFailure("E001", "abc"))
}

func TestIndependentKeys(t *testing.T) {
	cb := NewCircuitBreaker(3)
	cb.RecordFailure("E001", "abc")
	cb.RecordFailure("E002", "abc")
	assert.Equal(t, uint32(1), cb.FailureCount("E001", "abc"))
	assert.Equal(t, uint32(1), cb.FailureCount("E002", "abc"))
}

func TestExportImportRoundTrip(t *testing.T) {
	cb := NewCircuitBreaker(3)
	cb.RecordFailure("E001", "abc")
	cb.RecordFailure("E001", "abc")
	cb.RecordFailure("E001", "abc")

	other := NewCircuitBreaker(3)
	other.Import(cb.Export())
	assert.True(t, other.IsDowngraded("E001", "abc"))
	assert.Equal(t, uint32(3), other.FailureCount("E001", "abc"))
}
