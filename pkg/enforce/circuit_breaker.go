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

import "sync"

// BreakerAction is the recommended response to a recorded failure.
type BreakerAction int

const (
	// ActionFixHint is the first-attempt response: show the stock fix hint.
	ActionFixHint BreakerAction = iota
	// ActionWiderContext is the second-attempt response: widen discover depth.
	ActionWiderContext
	// ActionDowngrade is the response at max_failures and beyond: downgrade
	// the violation's severity from ERROR to WARNING.
	ActionDowngrade
)

type breakerKey struct {
	code       string
	identifier string
}

type failureState struct {
	consecutive uint32
	downgraded  bool
}

// CircuitBreaker tracks consecutive failures per (error_code, identifier)
// pair and escalates the recommended action each time record_failure is
// called without an intervening record_success.
type CircuitBreaker struct {
	mu          sync.Mutex
	maxFailures uint32
	state       map[breakerKey]*failureState
}

// NewCircuitBreaker constructs a breaker with the given escalation
// threshold (spec.md default: 3).
func NewCircuitBreaker(maxFailures uint32) *CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 3
	}
	return &CircuitBreaker{maxFailures: maxFailures, state: make(map[breakerKey]*failureState)}
}

// RecordFailure records a failure and returns the recommended action.
func (cb *CircuitBreaker) RecordFailure(code, identifier string) BreakerAction {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	key := breakerKey{code, identifier}
	st, ok := cb.state[key]
	if !ok {
		st = &failureState{}
		cb.state[key] = st
	}
	st.consecutive++

	switch {
	case st.consecutive == 1:
		return ActionFixHint
	case st.consecutive == 2:
		return ActionWiderContext
	case st.consecutive >= cb.maxFailures:
		st.downgraded = true
		return ActionDowngrade
	default:
		return ActionWiderContext
	}
}

// RecordSuccess clears the counter for (code, identifier).
func (cb *CircuitBreaker) RecordSuccess(code, identifier string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	delete(cb.state, breakerKey{code, identifier})
}

// IsDowngraded reports whether (code, identifier) has been downgraded.
func (cb *CircuitBreaker) IsDowngraded(code, identifier string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st, ok := cb.state[breakerKey{code, identifier}]
	return ok && st.downgraded
}

// FailureCount returns the current consecutive-failure count.
func (cb *CircuitBreaker) FailureCount(code, identifier string) uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st, ok := cb.state[breakerKey{code, identifier}]
	if !ok {
		return 0
	}
	return st.consecutive
}

// Export returns every tracked (code, identifier) counter, for persistence
// between invocations.
func (cb *CircuitBreaker) Export() []BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	out := make([]BreakerState, 0, len(cb.state))
	for k, st := range cb.state {
		out = append(out, BreakerState{Code: k.code, Identifier: k.identifier, Consecutive: st.consecutive, Downgraded: st.downgraded})
	}
	return out
}

// Import replaces the breaker's state with a previously exported snapshot.
func (cb *CircuitBreaker) Import(rows []BreakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = make(map[breakerKey]*failureState, len(rows))
	for _, r := range rows {
		cb.state[breakerKey{r.Code, r.Identifier}] = &failureState{consecutive: r.Consecutive, downgraded: r.Downgraded}
	}
}

// BreakerState is one persisted (code, identifier) counter.
type BreakerState struct {
	Code        string
	Identifier  string
	Consecutive uint32
	Downgraded  bool
}
