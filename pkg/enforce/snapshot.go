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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/keel/pkg/graph"
)

// snapshotFileName is the file under .keel/ every compile persists its
// violation keys to.
const snapshotFileName = "last_compile.json"

// SnapshotFromResult builds a graph.Snapshot from a compile result.
func SnapshotFromResult(result *CompileResult) *graph.Snapshot {
	s := &graph.Snapshot{
		Errors:   make([]graph.ViolationKey, 0, len(result.Errors)),
		Warnings: make([]graph.ViolationKey, 0, len(result.Warnings)),
	}
	for _, v := range result.Errors {
		s.Errors = append(s.Errors, violationToKey(v))
	}
	for _, v := range result.Warnings {
		s.Warnings = append(s.Warnings, violationToKey(v))
	}
	return s
}

func violationToKey(v Violation) graph.ViolationKey {
	return graph.ViolationKey{Code: v.Code, Hash: v.Hash, File: v.File, Line: v.Line}
}

// SaveSnapshot writes the snapshot to .keel/last_compile.json.
func SaveSnapshot(keelDir string, s *graph.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	path := filepath.Join(keelDir, snapshotFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot to %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads the previous snapshot, if any. A missing file returns
// (nil, nil) — there is simply nothing to diff against yet.
func LoadSnapshot(keelDir string) (*graph.Snapshot, error) {
	path := filepath.Join(keelDir, snapshotFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s graph.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &s, nil
}

// ComputeDelta diffs previous against the current compile result.
func ComputeDelta(previous *graph.Snapshot, current *CompileResult) CompileDelta {
	currentErrors := make(map[graph.ViolationKey]bool, len(current.Errors))
	for _, v := range current.Errors {
		currentErrors[violationToKey(v)] = true
	}
	currentWarnings := make(map[graph.ViolationKey]bool, len(current.Warnings))
	for _, v := range current.Warnings {
		currentWarnings[violationToKey(v)] = true
	}

	var prevErrors, prevWarnings map[graph.ViolationKey]bool
	if previous != nil {
		prevErrors = make(map[graph.ViolationKey]bool, len(previous.Errors))
		for _, k := range previous.Errors {
			prevErrors[k] = true
		}
		prevWarnings = make(map[graph.ViolationKey]bool, len(previous.Warnings))
		for _, k := range previous.Warnings {
			prevWarnings[k] = true
		}
	}

	newErrors := setDifferenceKeys(currentErrors, prevErrors)
	resolvedErrors := setDifferenceKeys(prevErrors, currentErrors)
	newWarnings := setDifferenceKeys(currentWarnings, prevWarnings)
	resolvedWarnings := setDifferenceKeys(prevWarnings, currentWarnings)

	totalErrors := len(current.Errors)
	totalWarnings := len(current.Warnings)

	return CompileDelta{
		NewErrors:        newErrors,
		ResolvedErrors:   resolvedErrors,
		NewWarnings:      newWarnings,
		ResolvedWarnings: resolvedWarnings,
		NetErrors:        len(newErrors) - len(resolvedErrors),
		NetWarnings:      len(newWarnings) - len(resolvedWarnings),
		Pressure:         PressureFromErrorCount(totalErrors),
		TotalErrors:      totalErrors,
		TotalWarnings:    totalWarnings,
	}
}

func setDifferenceKeys(a, b map[graph.ViolationKey]bool) []graph.ViolationKey {
	var out []graph.ViolationKey
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	return out
}
