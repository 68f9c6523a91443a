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

// Package tier3 implements the last-resort resolution tier: when Tier 1
// (tree-sitter) and Tier 2 (per-language heuristics) can't resolve a call
// site, a Tier 3 provider consults an external index (SCIP) or a running
// language server (LSP) for a high-confidence answer.
package tier3

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentResolutions bounds how many call sites ResolveBatch dispatches
// to providers at once. A single LSP provider serializes requests internally
// (one subprocess, one stdio connection), but a batch commonly spans several
// languages/providers, and bounding it keeps a huge unresolved-reference
// batch from spawning one goroutine per call site.
const maxConcurrentResolutions = 8

// CallSite is one unresolved reference handed to a provider.
type CallSite struct {
	FilePath   string
	Line       int
	CalleeName string
	Receiver   string
}

// Result is the outcome of a resolution attempt.
type Result struct {
	Resolved   bool
	TargetFile string
	TargetName string
	Confidence float64
	Provider   string
}

// Provider resolves call sites using an external source of truth. Tier 1
// and Tier 2 live in pkg/parser; this is a deliberately separate concern so
// providers can be added or swapped without touching LanguageResolver.
type Provider interface {
	// Language returns the canonical language tag this provider handles.
	Language() string
	// Available reports whether the provider is ready to answer queries
	// (index loaded, server spawned and initialized).
	Available() bool
	// Resolve attempts to resolve a single call site.
	Resolve(cs CallSite) Result
	// InvalidateFile drops any cached state for a changed file.
	InvalidateFile(path string)
	// Shutdown releases the provider's resources (stops a server process,
	// frees an in-memory index).
	Shutdown()
}

// Registry tries each registered provider in order for a call site,
// returning the first resolved result.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds a provider. Providers are tried in registration order.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Resolve tries every registered, available provider in order and returns
// the first resolved result, or an unresolved Result if none succeed.
func (r *Registry) Resolve(cs CallSite) Result {
	r.mu.RLock()
	providers := append([]Provider(nil), r.providers...)
	r.mu.RUnlock()

	for _, p := range providers {
		if !p.Available() {
			continue
		}
		if res := p.Resolve(cs); res.Resolved {
			return res
		}
	}
	return Result{}
}

// ResolveBatch resolves every call site, bounding how many are in flight at
// once via a weighted semaphore. Results land at the same index as their
// input site regardless of completion order.
func (r *Registry) ResolveBatch(sites []CallSite) []Result {
	results := make([]Result, len(sites))
	if len(sites) == 0 {
		return results
	}

	sem := semaphore.NewWeighted(maxConcurrentResolutions)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i, cs := range sites {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = r.Resolve(cs)
			continue
		}
		wg.Add(1)
		go func(i int, cs CallSite) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = r.Resolve(cs)
		}(i, cs)
	}
	wg.Wait()
	return results
}

// InvalidateFile notifies every registered provider that path changed.
func (r *Registry) InvalidateFile(path string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		p.InvalidateFile(path)
	}
}

// Shutdown shuts down every registered provider.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		p.Shutdown()
	}
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Empty reports whether no providers are registered.
func (r *Registry) Empty() bool {
	return r.Count() == 0
}
