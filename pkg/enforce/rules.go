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
	"fmt"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
)

// GraphStore is the subset of pkg/store.Store the rule checks need. Declared
// here so tests can substitute an in-memory fake.
type GraphStore interface {
	GetNode(hash string) (*graph.Node, error)
	GetNodeByID(id int64) (*graph.Node, error)
	GetNodesInFile(path string) ([]*graph.Node, error)
	FindNodesByName(name string, kindFilter graph.NodeKind, moduleFilter int64) ([]*graph.Node, error)
	GetAllModules() ([]*graph.Node, error)
	GetModuleProfile(moduleID int64) (*graph.ModuleProfile, error)
	GetEdges(nodeID int64, direction graph.EdgeDirection) ([]*graph.Edge, error)
}

// isTestFile reports whether path follows a per-language test-file naming
// convention. Go: *_test.go. Python: test_*.py or *_test.py. JS/TS:
// *.test.* or *.spec.*.
func isTestFile(path string) bool {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if strings.HasSuffix(base, "_test.go") {
		return true
	}
	if strings.HasSuffix(base, ".py") && (strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py")) {
		return true
	}
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	return false
}

// countParams counts the comma-separated parameters between a signature's
// first "(" and the first ")" after it. Returns 0 if the signature cannot be
// parsed — callers treat 0 as "unknown", not "no parameters", when the
// signature string is empty.
func countParams(sig string) int {
	start := strings.Index(sig, "(")
	if start < 0 {
		return 0
	}
	end := strings.Index(sig, ")")
	if end < 0 || end < start {
		return 0
	}
	params := strings.TrimSpace(sig[start+1 : end])
	if params == "" {
		return 0
	}
	return len(strings.Split(params, ","))
}

// extractPrefix returns the leading word of a snake_case or camelCase
// identifier, e.g. "handle" from "handleRequest" or "process" from
// "process_order". Returns "" when no boundary is found.
func extractPrefix(name string) string {
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[:i]
	}
	runes := []rune(name)
	for i := 1; i < len(runes); i++ {
		if runes[i] >= 'A' && runes[i] <= 'Z' {
			return string(runes[:i])
		}
	}
	return ""
}

// CheckFile runs every rule against one file's freshly parsed index and
// returns the violations found, errors first then warnings — matching the
// ordering the engine composes across files.
func CheckFile(st GraphStore, idx graph.FileIndex) []Violation {
	var errs, warns []Violation

	existing, err := st.GetNodesInFile(idx.Path)
	if err != nil {
		existing = nil
	}
	existingByName := make(map[string]*graph.Node, len(existing))
	var moduleNode *graph.Node
	for _, n := range existing {
		if n.Kind == graph.KindModule {
			moduleNode = n
			continue
		}
		existingByName[n.Name] = n
	}

	seen := make(map[string]bool, len(idx.Definitions))
	for _, def := range idx.Definitions {
		seen[def.Name] = true

		if v, ok := checkSignatureBreak(st, idx.Path, def, existingByName[def.Name]); ok {
			errs = append(errs, v)
		}
		if def.Kind == graph.KindFunction && def.IsPublic && !def.IsTest {
			if v, ok := checkMissingTypeHints(idx.Path, def); ok {
				errs = append(errs, v)
			}
			if v, ok := checkMissingDocstring(idx.Path, def); ok {
				errs = append(errs, v)
			}
		}
		if v, ok := checkDuplicateName(st, idx.Path, moduleNode, def); ok {
			warns = append(warns, v)
		}
		if v, ok := checkPlacement(st, idx.Path, moduleNode, def); ok {
			warns = append(warns, v)
		}
	}

	for name, n := range existingByName {
		if seen[name] {
			continue
		}
		if v, ok := checkRemovedNode(st, n); ok {
			errs = append(errs, v)
		}
	}

	for _, ref := range idx.References {
		if ref.Kind != graph.RefCall || ref.ResolvedHash == "" {
			continue
		}
		if v, ok := checkArityMismatch(st, idx.Path, ref); ok {
			errs = append(errs, v)
		}
	}

	out := make([]Violation, 0, len(errs)+len(warns))
	out = append(out, errs...)
	out = append(out, warns...)
	return out
}

// checkSignatureBreak implements E001: the existing stored node for this
// name has a hash that no longer matches the freshly parsed definition, and
// at least one live caller still targets the old node.
func checkSignatureBreak(st GraphStore, path string, def graph.PendingNode, previous *graph.Node) (Violation, bool) {
	if previous == nil || previous.Hash == def.Hash {
		return Violation{}, false
	}

	var affected []AffectedCaller
	edges, err := st.GetEdges(previous.ID, graph.DirectionIncoming)
	if err == nil {
		for _, e := range edges {
			if e.Kind != graph.EdgeCalls {
				continue
			}
			caller, cerr := resolveNode(st, e.SourceID)
			name := "caller"
			if cerr == nil && caller != nil {
				name = caller.Name
			}
			affected = append(affected, AffectedCaller{Hash: previous.Hash, Name: name, File: e.FilePath, Line: e.Line})
		}
	}
	if len(affected) == 0 {
		return Violation{}, false
	}

	return Violation{
		Code: CodeSignatureBreak, Severity: "ERROR", Category: "compatibility",
		Message:        fmt.Sprintf("Signature of %q changed; %d caller(s) may reference an incompatible hash.", def.Name, len(affected)),
		File:           path,
		Line:           def.LineStart,
		Hash:           def.Hash,
		Confidence:     1,
		ResolutionTier: "store",
		FixHint:        "Update callers to the new signature, or restore a compatible one.",
		Affected:       affected,
	}, true
}

func resolveNode(st GraphStore, id int64) (*graph.Node, error) {
	return st.GetNodeByID(id)
}

// checkMissingTypeHints implements E002.
func checkMissingTypeHints(path string, def graph.PendingNode) (Violation, bool) {
	if def.TypeHintsPresent {
		return Violation{}, false
	}
	return Violation{
		Code: CodeMissingTypes, Severity: "ERROR", Category: "style",
		Message:        fmt.Sprintf("%q is public but lacks type annotations.", def.Name),
		File:           path,
		Line:           def.LineStart,
		Hash:           def.Hash,
		Confidence:     0.9,
		ResolutionTier: "tree-sitter",
		FixHint:        "Add type annotations to every parameter and the return value.",
	}, true
}

// checkMissingDocstring implements E003.
func checkMissingDocstring(path string, def graph.PendingNode) (Violation, bool) {
	if def.HasDocstring {
		return Violation{}, false
	}
	return Violation{
		Code: CodeMissingDoc, Severity: "ERROR", Category: "style",
		Message:        fmt.Sprintf("%q is public but lacks a docstring.", def.Name),
		File:           path,
		Line:           def.LineStart,
		Hash:           def.Hash,
		Confidence:     0.9,
		ResolutionTier: "tree-sitter",
		FixHint:        "Add a docstring describing purpose, parameters, and return value.",
	}, true
}

// checkRemovedNode implements E004: a node previously stored for this file
// is gone from the fresh parse and still has live incoming calls.
func checkRemovedNode(st GraphStore, previous *graph.Node) (Violation, bool) {
	edges, err := st.GetEdges(previous.ID, graph.DirectionIncoming)
	if err != nil || len(edges) == 0 {
		return Violation{}, false
	}
	var affected []AffectedCaller
	for _, e := range edges {
		if e.Kind != graph.EdgeCalls {
			continue
		}
		caller, cerr := resolveNode(st, e.SourceID)
		name := "caller"
		if cerr == nil && caller != nil {
			name = caller.Name
		}
		affected = append(affected, AffectedCaller{Hash: previous.Hash, Name: name, File: e.FilePath, Line: e.Line})
	}
	if len(affected) == 0 {
		return Violation{}, false
	}
	return Violation{
		Code: CodeRemovedNode, Severity: "ERROR", Category: "compatibility",
		Message:        fmt.Sprintf("%q was removed from %s but has %d live caller(s).", previous.Name, previous.FilePath, len(affected)),
		File:           previous.FilePath,
		Line:           previous.LineStart,
		Hash:           previous.Hash,
		Confidence:     1,
		ResolutionTier: "store",
		FixHint:        "Restore the definition, or update every live caller before removing it.",
		Affected:       affected,
	}, true
}

// checkArityMismatch implements E005: a resolved call's argument count
// disagrees with the target's declared parameter count.
func checkArityMismatch(st GraphStore, path string, ref graph.Reference) (Violation, bool) {
	target, err := st.GetNode(ref.ResolvedHash)
	if err != nil || target.Signature == "" {
		return Violation{}, false
	}
	arity := countParams(target.Signature)
	if arity == ref.ArgCount {
		return Violation{}, false
	}
	return Violation{
		Code: CodeArityMismatch, Severity: "ERROR", Category: "compatibility",
		Message: fmt.Sprintf("%q declares %d parameter(s) but the call at %s:%d passes %d argument(s).",
			target.Name, arity, path, ref.Line, ref.ArgCount),
		File:           path,
		Line:           ref.Line,
		Hash:           target.Hash,
		Confidence:     0.85,
		ResolutionTier: "tree-sitter",
		FixHint:        "Match the call's argument count to the target's declared parameters.",
	}, true
}

// checkDuplicateName implements W002: the same name is already defined in a
// different module with a different signature.
func checkDuplicateName(st GraphStore, path string, moduleNode *graph.Node, def graph.PendingNode) (Violation, bool) {
	candidates, err := st.FindNodesByName(def.Name, def.Kind, 0)
	if err != nil {
		return Violation{}, false
	}
	for _, c := range candidates {
		if c.FilePath == path {
			continue
		}
		if c.Signature == def.Signature {
			continue
		}
		return Violation{
			Code: CodeDuplicateName, Severity: "WARNING", Category: "placement",
			Message:        fmt.Sprintf("%q is already defined in %s with a different signature.", def.Name, c.FilePath),
			File:           path,
			Line:           def.LineStart,
			Hash:           def.Hash,
			Confidence:     0.7,
			ResolutionTier: "heuristic",
			FixHint:        "Rename one definition, or consolidate the two into a shared module.",
			Existing:       &ExistingRef{Hash: c.Hash, File: c.FilePath, Line: c.LineStart},
		}, true
	}
	return Violation{}, false
}

// placementScoreThreshold is how much better another module's keyword match
// must be before W001 fires; avoids flagging marginal ties.
const placementScoreThreshold = 2

// checkPlacement implements W001: a definition's name prefix matches another
// module's responsibility keywords more strongly than its own module's.
func checkPlacement(st GraphStore, path string, moduleNode *graph.Node, def graph.PendingNode) (Violation, bool) {
	if moduleNode == nil {
		return Violation{}, false
	}
	prefix := extractPrefix(def.Name)
	if prefix == "" {
		return Violation{}, false
	}

	ownScore := 0
	if profile, err := st.GetModuleProfile(moduleNode.ID); err == nil {
		ownScore = keywordScore(profile, prefix)
	}

	modules, err := st.GetAllModules()
	if err != nil {
		return Violation{}, false
	}

	bestScore := ownScore
	var bestModule *graph.Node
	for _, m := range modules {
		if m.ID == moduleNode.ID {
			continue
		}
		profile, err := st.GetModuleProfile(m.ID)
		if err != nil {
			continue
		}
		score := keywordScore(profile, prefix)
		if score > bestScore {
			bestScore = score
			bestModule = m
		}
	}

	if bestModule == nil || bestScore < ownScore+placementScoreThreshold {
		return Violation{}, false
	}

	return Violation{
		Code: CodePlacement, Severity: "WARNING", Category: "placement",
		Message:         fmt.Sprintf("%q looks more at home in %s than in %s.", def.Name, bestModule.FilePath, path),
		File:            path,
		Line:            def.LineStart,
		Hash:            def.Hash,
		Confidence:      0.6,
		ResolutionTier:  "heuristic",
		FixHint:         fmt.Sprintf("Consider moving %q to %s.", def.Name, bestModule.FilePath),
		SuggestedModule: bestModule.FilePath,
	}, true
}

func keywordScore(profile *graph.ModuleProfile, prefix string) int {
	score := 0
	for _, p := range profile.FunctionNamePrefixes {
		if strings.EqualFold(p, prefix) {
			score++
		}
	}
	for _, k := range profile.ResponsibilityKeywords {
		if strings.EqualFold(k, prefix) {
			score++
		}
	}
	return score
}
