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
)

func TestKeywordsFromDescription(t *testing.T) {
	kw := keywordsFromDescription("Validate the incoming order payload for a customer")
	assert.Contains(t, kw, "validate")
	assert.Contains(t, kw, "incoming")
	assert.Contains(t, kw, "order")
	assert.NotContains(t, kw, "the")
	assert.NotContains(t, kw, "for")
}

func TestSuggestedNameForConventions(t *testing.T) {
	assert.Equal(t, "validate_order", suggestedNameFor([]string{"validate", "order"}, "python"))
	assert.Equal(t, "validateOrder", suggestedNameFor([]string{"validate", "order"}, "typescript"))
}

func TestSuggestNamePicksBestMatch(t *testing.T) {
	candidates := []ModuleCandidate{
		{Path: "pkg/billing/billing.go", ResponsibilityKeywords: []string{"invoice", "payment"}, Language: "go"},
		{Path: "pkg/orders/orders.go", ResponsibilityKeywords: []string{"order", "validate", "checkout"}, Language: "go", LastFunctionName: "CreateOrder", LastFunctionLine: 42},
	}
	suggestion := SuggestName("validate the customer order before checkout", candidates)
	require.NotNil(t, suggestion)
	assert.Equal(t, "pkg/orders/orders.go", suggestion.Location)
	assert.Equal(t, "CreateOrder", suggestion.InsertAfter)
	assert.Greater(t, suggestion.Score, 0.0)
	require.Len(t, suggestion.Alternatives, 1)
	assert.Equal(t, "pkg/billing/billing.go", suggestion.Alternatives[0].Location)
}

func TestSuggestNameNoCandidates(t *testing.T) {
	suggestion := SuggestName("do something", nil)
	require.NotNil(t, suggestion)
	assert.Empty(t, suggestion.Location)
}
