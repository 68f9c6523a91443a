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
	"sort"

	"github.com/kraklabs/keel/pkg/graph"
)

// Engine combines the rule checks with the breaker, suppression, and batch
// layers into the single entry point the server handlers and the CLI
// compile command call.
type Engine struct {
	store      GraphStore
	breaker    *CircuitBreaker
	suppressed *SuppressionManager
	batch      *BatchState
	keelDir    string // "" disables snapshot persistence, e.g. in tests
}

// NewEngine constructs an Engine. keelDir is the project's .keel directory;
// pass "" to run without snapshot persistence.
func NewEngine(st GraphStore, maxFailures uint32, keelDir string) *Engine {
	return &Engine{
		store:      st,
		breaker:    NewCircuitBreaker(maxFailures),
		suppressed: NewSuppressionManager(),
		keelDir:    keelDir,
	}
}

// Suppress adds code to the suppression set.
func (e *Engine) Suppress(code string) { e.suppressed.Suppress(code) }

// BatchStart enters deferred mode; a second call restarts the window.
func (e *Engine) BatchStart() { e.batch = NewBatchState() }

// InBatch reports whether batch mode is currently active and unexpired.
func (e *Engine) InBatch() bool {
	return e.batch != nil && !e.batch.IsExpired()
}

// BreakerExport and BreakerImport round-trip circuit-breaker state through
// the store between CLI invocations.
func (e *Engine) BreakerExport() []BreakerState     { return e.breaker.Export() }
func (e *Engine) BreakerImport(rows []BreakerState) { e.breaker.Import(rows) }

func breakerIdentifier(v Violation) string {
	if v.Hash != "" {
		return v.Hash
	}
	return v.File
}

// Compile runs every rule against each file index, applies suppression and
// circuit-breaker escalation, and — unless batch mode defers them — returns
// the resulting CompileResult. strict promotes warnings to errors for the
// purpose of the returned Status (the violations themselves are untouched).
func (e *Engine) Compile(indexes []graph.FileIndex, strict bool) *CompileResult {
	var allErrors, allWarnings []Violation
	if e.InBatch() {
		e.batch.Touch()
	}

	for _, idx := range indexes {
		violations := CheckFile(e.store, idx)
		fileErrors, fileWarnings := e.classify(violations)
		allErrors = append(allErrors, fileErrors...)
		allWarnings = append(allWarnings, fileWarnings...)
	}

	sortByLine(allErrors)
	sortByLine(allWarnings)

	result := &CompileResult{
		FilesAnalyzed: len(indexes),
		Errors:        allErrors,
		Warnings:      allWarnings,
	}
	switch {
	case len(allErrors) > 0:
		result.Status = StatusError
	case len(allWarnings) > 0:
		result.Status = StatusWarning
	default:
		result.Status = StatusOK
	}
	if strict && len(allWarnings) > 0 {
		result.Status = StatusError
	}

	if e.keelDir != "" {
		e.persistSnapshot(result)
	}
	return result
}

// classify applies suppression, batch deferral, and circuit-breaker
// escalation to one file's raw rule output, splitting it into the errors
// and warnings that should be returned immediately.
func (e *Engine) classify(violations []Violation) (errors, warnings []Violation) {
	for _, v := range violations {
		v = e.suppressed.Apply(v)

		if v.Severity == "ERROR" {
			id := breakerIdentifier(v)
			action := e.breaker.RecordFailure(v.Code, id)
			switch action {
			case ActionWiderContext:
				v.FixHint = v.FixHint + " Widen discover depth for more context."
			case ActionDowngrade:
				v.Severity = "WARNING"
			}
		}

		if e.InBatch() && IsDeferrable(v.Code) {
			e.batch.Defer(v)
			continue
		}

		if v.Severity == "WARNING" || v.Severity == "INFO" {
			warnings = append(warnings, v)
		} else {
			errors = append(errors, v)
		}
	}
	return errors, warnings
}

// BatchEnd flushes every deferred violation accumulated since BatchStart,
// returning a CompileResult with status batch_ended.
func (e *Engine) BatchEnd() *CompileResult {
	if e.batch == nil {
		return &CompileResult{Status: StatusBatchEnded}
	}
	deferred := e.batch.Drain()
	e.batch = nil

	var warnings, info []Violation
	for _, v := range deferred {
		if v.Suppressed {
			info = append(info, v)
		} else {
			warnings = append(warnings, v)
		}
	}
	sortByLine(warnings)
	sortByLine(info)

	return &CompileResult{
		Status:   StatusBatchEnded,
		Warnings: warnings,
		Info:     info,
	}
}

func sortByLine(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].File != vs[j].File {
			return vs[i].File < vs[j].File
		}
		return vs[i].Line < vs[j].Line
	})
}

func (e *Engine) persistSnapshot(result *CompileResult) {
	previous, _ := LoadSnapshot(e.keelDir)
	delta := ComputeDelta(previous, result)
	for _, resolved := range delta.ResolvedErrors {
		e.breaker.RecordSuccess(resolved.Code, breakerIdentifierFromKey(resolved))
	}
	snap := SnapshotFromResult(result)
	_ = SaveSnapshot(e.keelDir, snap)
}

func breakerIdentifierFromKey(k graph.ViolationKey) string {
	if k.Hash != "" {
		return k.Hash
	}
	return k.File
}
