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

// Package output renders the typed results of every keel command — compile,
// discover, explain, map, fix, and name — into human, JSON, or LLM-facing
// text. It depends only on pkg/enforce's violation types plus the small
// result structs defined here; it has no knowledge of the store, the
// parser, or the mapper.
package output

import "github.com/kraklabs/keel/pkg/enforce"

// Version is the schema version stamped onto every result struct's
// "version" field, independent of the keel.json project config version.
const Version = "0.1.0"

// DiscoverTarget is the definition a discover query centered on.
type DiscoverTarget struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	File      string `json:"file"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Signature string `json:"signature"`
	Docstring string `json:"docstring,omitempty"`
}

// CallEntry is one caller or callee surfaced by a discover query.
type CallEntry struct {
	Name     string `json:"name"`
	Hash     string `json:"hash"`
	File     string `json:"file"`
	CallLine int    `json:"call_line"`
}

// ModuleContext is the discover query's containing module summary.
type ModuleContext struct {
	Module                 string   `json:"module"`
	FunctionCount           int      `json:"function_count"`
	ResponsibilityKeywords []string `json:"responsibility_keywords,omitempty"`
}

// DiscoverResult is the output of `keel discover`.
type DiscoverResult struct {
	Version       string          `json:"version"`
	Command       string          `json:"command"`
	Target        DiscoverTarget  `json:"target"`
	Upstream      []CallEntry     `json:"upstream"`
	Downstream    []CallEntry     `json:"downstream"`
	ModuleContext ModuleContext   `json:"module_context"`
}

// WhereResult is the output of `keel where`: a definition's current
// location and its rename history, with no call-graph traversal.
type WhereResult struct {
	Version        string   `json:"version"`
	Command        string   `json:"command"`
	Hash           string   `json:"hash"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	File           string   `json:"file"`
	LineStart      int      `json:"line_start"`
	LineEnd        int      `json:"line_end"`
	PreviousHashes []string `json:"previous_hashes,omitempty"`
}

// ResolutionStep is one hop in an explain result's resolution chain.
type ResolutionStep struct {
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// ExplainResult is the output of `keel explain`.
type ExplainResult struct {
	Version         string           `json:"version"`
	Command         string           `json:"command"`
	ErrorCode       string           `json:"error_code"`
	Hash            string           `json:"hash"`
	Confidence      float64          `json:"confidence"`
	ResolutionTier  string           `json:"resolution_tier"`
	ResolutionChain []ResolutionStep `json:"resolution_chain"`
	Summary         string           `json:"summary"`
}

// MapSummary is the top-level counts in a map result.
type MapSummary struct {
	TotalNodes         int      `json:"total_nodes"`
	TotalEdges         int      `json:"total_edges"`
	Modules            int      `json:"modules"`
	Functions          int      `json:"functions"`
	Classes            int      `json:"classes"`
	ExternalEndpoints  int      `json:"external_endpoints"`
	Languages          []string `json:"languages"`
	TypeHintCoverage   float64  `json:"type_hint_coverage"`
	DocstringCoverage  float64  `json:"docstring_coverage"`
}

// FunctionNameEntry names one function within a ModuleEntry, at depth 1+.
type FunctionNameEntry struct {
	Name    string `json:"name"`
	Hash    string `json:"hash"`
	Callers int    `json:"callers"`
	Callees int    `json:"callees"`
}

// ModuleEntry is one module (file) row in a map result.
type ModuleEntry struct {
	Path                   string              `json:"path"`
	FunctionCount          int                 `json:"function_count"`
	ClassCount             int                 `json:"class_count"`
	EdgeCount              int                 `json:"edge_count"`
	ResponsibilityKeywords []string            `json:"responsibility_keywords,omitempty"`
	ExternalEndpoints      []string            `json:"external_endpoints,omitempty"`
	FunctionNames          []FunctionNameEntry `json:"function_names,omitempty"`
}

// HotspotEntry is one highly-connected node surfaced in a map result.
type HotspotEntry struct {
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Hash     string   `json:"hash"`
	Callers  int      `json:"callers"`
	Callees  int      `json:"callees"`
	Keywords []string `json:"keywords,omitempty"`
}

// FunctionEntry is one function row at map depth 2+.
type FunctionEntry struct {
	Hash      string `json:"hash"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Callers   int    `json:"callers"`
	Callees   int    `json:"callees"`
	IsPublic  bool   `json:"is_public"`
}

// MapResult is the output of `keel map`.
type MapResult struct {
	Version   string         `json:"version"`
	Command   string         `json:"command"`
	RunID     string         `json:"run_id,omitempty"`
	Summary   MapSummary     `json:"summary"`
	Modules   []ModuleEntry  `json:"modules"`
	Hotspots  []HotspotEntry `json:"hotspots"`
	Depth     int            `json:"depth"`
	Functions []FunctionEntry `json:"functions,omitempty"`
}

// FixAction is one call-site edit a fix plan proposes.
type FixAction struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	OldText     string `json:"old_text"`
	NewText     string `json:"new_text"`
	Description string `json:"description,omitempty"`
}

// FixPlan addresses one violation with zero or more call-site actions.
type FixPlan struct {
	Code       string      `json:"code"`
	Hash       string      `json:"hash"`
	Category   string      `json:"category"`
	TargetName string      `json:"target_name"`
	Cause      string      `json:"cause"`
	Actions    []FixAction `json:"actions"`
}

// FixResult is the output of `keel fix` (plan-only, no --apply).
type FixResult struct {
	Version             string    `json:"version"`
	Command             string    `json:"command"`
	ViolationsAddressed int       `json:"violations_addressed"`
	FilesAffected       int       `json:"files_affected"`
	Plans               []FixPlan `json:"plans"`
}

// FixApplyDetail is the outcome of applying one FixAction.
type FixApplyDetail struct {
	File  string  `json:"file"`
	Line  int     `json:"line"`
	Status string `json:"status"` // "applied" or "failed"
	Error *string `json:"error,omitempty"`
}

// FixApplyResult is the output of `keel fix --apply`.
type FixApplyResult struct {
	Version         string           `json:"version"`
	Command         string           `json:"command"`
	ActionsApplied  int              `json:"actions_applied"`
	ActionsFailed   int              `json:"actions_failed"`
	FilesModified   []string         `json:"files_modified"`
	RecompileClean  bool             `json:"recompile_clean"`
	RecompileErrors int              `json:"recompile_errors"`
	Details         []FixApplyDetail `json:"details"`
}

// NameResult is the output of `keel name <description>`.
type NameResult struct {
	Version     string                    `json:"version"`
	Command     string                    `json:"command"`
	Description string                    `json:"description"`
	Suggestions []enforce.NameSuggestion `json:"suggestions"`
}

// SearchMatch is one node surfaced by `keel search` or `keel check`.
type SearchMatch struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Signature string `json:"signature,omitempty"`
}

// SearchResult is the output of `keel search <term>`: every node whose name
// contains term, optionally narrowed to one kind.
type SearchResult struct {
	Version string        `json:"version"`
	Command string        `json:"command"`
	Term    string        `json:"term"`
	Kind    string        `json:"kind,omitempty"`
	Matches []SearchMatch `json:"matches"`
}

// CheckResult is the output of `keel check <query>`: a fast existence probe
// an agent runs before trusting a name or hash it is about to reference,
// rather than a full discover/where lookup.
type CheckResult struct {
	Version string        `json:"version"`
	Command string        `json:"command"`
	Query   string        `json:"query"`
	ByName  bool          `json:"by_name"`
	Found   bool          `json:"found"`
	Matches []SearchMatch `json:"matches,omitempty"`
}

// ContextDefinition is one function or class declared in a file, as surfaced
// by `keel context`.
type ContextDefinition struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Kind      string `json:"kind"`
	Line      int    `json:"line"`
	Signature string `json:"signature"`
	IsPublic  bool   `json:"is_public"`
}

// ContextResult is the output of `keel context <file>`: everything the
// structural graph knows about one file, its module profile and the
// definitions it declares, without the graph traversal `discover` does.
type ContextResult struct {
	Version     string               `json:"version"`
	Command     string               `json:"command"`
	File        string               `json:"file"`
	Module      ModuleContext        `json:"module"`
	Definitions []ContextDefinition  `json:"definitions"`
}

// AnalyzeIssue is one structural observation `keel analyze` surfaces about a
// file: an unusually large function, an isolated (zero-caller) definition, a
// module boundary the file straddles. Purely call-graph-derived — never a
// semantic or stylistic judgment.
type AnalyzeIssue struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Hash string `json:"hash"`
	Line int    `json:"line"`
	Note string `json:"note"`
}

// AnalyzeResult is the output of `keel analyze <file>`: structural metrics
// derived from the call graph, not a narrative summary.
type AnalyzeResult struct {
	Version       string         `json:"version"`
	Command       string         `json:"command"`
	File          string         `json:"file"`
	FunctionCount int            `json:"function_count"`
	ClassCount    int            `json:"class_count"`
	TotalCallers  int            `json:"total_callers"`
	TotalCallees  int            `json:"total_callees"`
	Isolated      int            `json:"isolated"`
	Issues        []AnalyzeIssue `json:"issues"`
}

// StatsResult is the output of `keel stats`: the session counters recorded
// by internal/telemetry, for `--json` consumption (the only wire format
// stats supports).
type StatsResult struct {
	Version          string  `json:"version"`
	Command          string  `json:"command"`
	ProjectID        string  `json:"project_id"`
	Compiles         int64   `json:"compiles"`
	TotalViolations  int64   `json:"total_violations"`
	TotalErrors      int64   `json:"total_errors"`
	TotalWarnings    int64   `json:"total_warnings"`
	SessionsStarted  int64   `json:"sessions_started"`
	AvgCompileMillis float64 `json:"avg_compile_millis"`
}
