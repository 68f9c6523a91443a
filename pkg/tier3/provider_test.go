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
)

type mockProvider struct {
	language  string
	available bool
	result    Result
	invalidated []string
}

func (m *mockProvider) Language() string    { return m.language }
func (m *mockProvider) Available() bool     { return m.available }
func (m *mockProvider) Resolve(CallSite) Result { return m.result }
func (m *mockProvider) InvalidateFile(path string) { m.invalidated = append(m.invalidated, path) }
func (m *mockProvider) Shutdown()           {}

func TestRegistryEmptyReturnsUnresolved(t *testing.T) {
	r := NewRegistry()
	res := r.Resolve(CallSite{FilePath: "a.ts", Line: 1, CalleeName: "foo"})
	assert.False(t, res.Resolved)
	assert.True(t, r.Empty())
}

func TestRegistrySkipsUnavailableProviders(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{
		language:  "typescript",
		available: false,
		result:    Result{Resolved: true, TargetName: "foo"},
	})
	res := r.Resolve(CallSite{FilePath: "a.ts", CalleeName: "foo"})
	assert.False(t, res.Resolved)
}

func TestRegistryReturnsFirstResolved(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{language: "typescript", available: true, result: Result{}})
	r.Register(&mockProvider{
		language:  "typescript",
		available: true,
		result:    Result{Resolved: true, TargetName: "bar", Confidence: 0.95, Provider: "mock2"},
	})
	res := r.Resolve(CallSite{FilePath: "a.ts", CalleeName: "bar"})
	assert.True(t, res.Resolved)
	assert.Equal(t, "bar", res.TargetName)
}

func TestRegistryInvalidateFileFansOut(t *testing.T) {
	r := NewRegistry()
	m := &mockProvider{language: "go", available: true}
	r.Register(m)
	r.InvalidateFile("foo.go")
	assert.Equal(t, []string{"foo.go"}, m.invalidated)
}

func TestRegistryCount(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Count())
	r.Register(&mockProvider{language: "python", available: true})
	assert.Equal(t, 1, r.Count())
	assert.False(t, r.Empty())
}

func TestResolveBatchPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{
		language:  "go",
		available: true,
		result:    Result{Resolved: true, TargetName: "shared", Confidence: 0.85},
	})

	sites := make([]CallSite, 50)
	for i := range sites {
		sites[i] = CallSite{FilePath: "a.go", Line: i, CalleeName: "shared"}
	}

	results := r.ResolveBatch(sites)
	assert.Len(t, results, 50)
	for _, res := range results {
		assert.True(t, res.Resolved)
		assert.Equal(t, "shared", res.TargetName)
	}
}

func TestResolveBatchEmptyInput(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.ResolveBatch(nil))
}
