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
	"sync"
	"time"
)

// BatchTimeout is the inactivity window after which an active batch
// auto-expires.
const BatchTimeout = 60 * time.Second

// BatchState tracks deferred violations during batch mode. A zero-value
// BatchState is not usable; construct with NewBatchState.
type BatchState struct {
	mu        sync.Mutex
	deferred  []Violation
	startedAt time.Time
}

// NewBatchState starts a new batch window.
func NewBatchState() *BatchState {
	return &BatchState{startedAt: time.Now()}
}

// Defer adds a violation to the deferred queue.
func (b *BatchState) Defer(v Violation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deferred = append(b.deferred, v)
}

// IsExpired reports whether the batch has exceeded BatchTimeout since the
// last touch.
func (b *BatchState) IsExpired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.startedAt) > BatchTimeout
}

// Touch refreshes the timeout, called on each compile while batch mode is
// active.
func (b *BatchState) Touch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startedAt = time.Now()
}

// Drain returns and clears every deferred violation.
func (b *BatchState) Drain() []Violation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.deferred
	b.deferred = nil
	return out
}

// DeferredCount returns the number of violations currently deferred.
func (b *BatchState) DeferredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.deferred)
}
