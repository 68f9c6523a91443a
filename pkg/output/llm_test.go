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

package output

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/keel/pkg/enforce"
)

func makeViolation(code string, idx int) enforce.Violation {
	severity := "WARNING"
	if strings.HasPrefix(code, "E") {
		severity = "ERROR"
	}
	return enforce.Violation{
		Code:           code,
		Severity:       severity,
		Category:       "cat_" + code,
		Message:        fmt.Sprintf("Violation %d: test message for %s", idx, code),
		File:           fmt.Sprintf("src/file_%d.py", idx),
		Line:           idx,
		Hash:           fmt.Sprintf("hash%08d", idx),
		Confidence:     0.85,
		ResolutionTier: "tree-sitter",
		FixHint:        fmt.Sprintf("Fix violation %d", idx),
	}
}

func compileWithManyViolations(errorCount, warningCount int) *enforce.CompileResult {
	errors := make([]enforce.Violation, errorCount)
	for i := range errors {
		errors[i] = makeViolation("E001", i)
	}
	warnings := make([]enforce.Violation, warningCount)
	for i := range warnings {
		warnings[i] = makeViolation("W001", errorCount+i)
	}
	status := enforce.StatusOK
	if errorCount > 0 {
		status = enforce.StatusError
	} else if warningCount > 0 {
		status = enforce.StatusWarning
	}
	return &enforce.CompileResult{
		Status:        status,
		FilesAnalyzed: errorCount + warningCount,
		Errors:        errors,
		Warnings:      warnings,
	}
}

func TestLLMDepth1HasBackpressure(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatCompile(compileWithManyViolations(20, 30))
	assert.Contains(t, out, "PRESSURE=HIGH")
	assert.Contains(t, out, "BUDGET=stop_generating")
}

func TestLLMDepth1GroupsByFile(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatCompile(compileWithManyViolations(5, 0))
	assert.Contains(t, out, "FILE src/file_0.py")
}

func TestLLMDepth2ShowsAllViolations(t *testing.T) {
	f := NewLLMFormatterWithDepths(1, 2)
	out := f.FormatCompile(compileWithManyViolations(50, 0))
	assert.Equal(t, 50, strings.Count(out, "FIX:"))
}

func TestLLMDepth2ErrorsBeforeWarnings(t *testing.T) {
	f := NewLLMFormatterWithDepths(1, 2)
	out := f.FormatCompile(compileWithManyViolations(5, 10))
	assert.Less(t, strings.Index(out, "E001"), strings.Index(out, "W001"))
}

func TestLLMDepth0CountsOnly(t *testing.T) {
	f := NewLLMFormatterWithDepths(1, 0)
	out := f.FormatCompile(compileWithManyViolations(3, 2))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, out, "errors=3")
	assert.Contains(t, out, "warnings=2")
	assert.Contains(t, out, "PRESSURE=MED")
}

func TestLLMDepth2IncludesFixHints(t *testing.T) {
	f := NewLLMFormatterWithDepths(1, 2)
	out := f.FormatCompile(compileWithManyViolations(5, 0))
	for i := 0; i < 5; i++ {
		assert.Contains(t, out, fmt.Sprintf("FIX: Fix violation %d", i))
	}
}

func TestLLMPressureLevels(t *testing.T) {
	f := NewLLMFormatterWithDepths(1, 0)

	out := f.FormatCompile(compileWithManyViolations(1, 0))
	assert.Contains(t, out, "PRESSURE=LOW")
	assert.Contains(t, out, "BUDGET=keep_going")

	out = f.FormatCompile(compileWithManyViolations(4, 0))
	assert.Contains(t, out, "PRESSURE=MED")
	assert.Contains(t, out, "BUDGET=fix_before_adding_more")

	out = f.FormatCompile(compileWithManyViolations(10, 0))
	assert.Contains(t, out, "PRESSURE=HIGH")
	assert.Contains(t, out, "BUDGET=stop_generating")
}

func sampleMapResult() *MapResult {
	return &MapResult{
		Version: Version,
		Command: "map",
		Summary: MapSummary{
			TotalNodes:        142,
			TotalEdges:        298,
			Modules:           12,
			Functions:         45,
			Classes:           8,
			ExternalEndpoints: 3,
			Languages:         []string{"go", "python"},
			TypeHintCoverage:  85.0,
			DocstringCoverage: 62.5,
		},
		Modules: []ModuleEntry{
			{Path: "src/auth/", FunctionCount: 12, ClassCount: 2, EdgeCount: 31, ResponsibilityKeywords: []string{"auth", "jwt"}},
			{Path: "src/handlers/", FunctionCount: 8, ClassCount: 0, EdgeCount: 20, ResponsibilityKeywords: []string{"http", "api"}},
		},
		Hotspots: []HotspotEntry{
			{Path: "src/auth/middleware.go", Name: "validateToken", Hash: "abc12345678", Callers: 23, Callees: 8, Keywords: []string{"auth", "jwt"}},
		},
		Depth: 1,
	}
}

func TestLLMMapDepth0SummaryOnly(t *testing.T) {
	f := NewLLMFormatterWithDepths(0, 1)
	out := f.FormatMap(sampleMapResult())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, out, "MAP nodes=142 edges=298")
}

func TestLLMMapDepth1HasHotspotsAndModules(t *testing.T) {
	f := NewLLMFormatterWithDepths(1, 1)
	out := f.FormatMap(sampleMapResult())
	assert.Contains(t, out, "HOTSPOTS")
	assert.Contains(t, out, "callers=23 callees=8")
	assert.Contains(t, out, "MODULE src/auth/")
	assert.Contains(t, out, "[auth,jwt]")
}

func TestLLMMapDepth2HasFunctions(t *testing.T) {
	m := sampleMapResult()
	m.Functions = append(m.Functions, FunctionEntry{
		Hash: "fn1", Name: "validateToken", Signature: "func validateToken(token string) bool",
		File: "src/auth/middleware.go", Line: 15, Callers: 23, Callees: 8, IsPublic: true,
	})
	f := NewLLMFormatterWithDepths(2, 1)
	out := f.FormatMap(m)
	assert.Contains(t, out, "FUNCTIONS:")
	assert.Contains(t, out, "validateToken hash=fn1")
	assert.Contains(t, out, "sig: func validateToken")
}

func TestLLMMapDepth3Warns(t *testing.T) {
	f := NewLLMFormatterWithDepths(3, 1)
	out := f.FormatMap(sampleMapResult())
	assert.Contains(t, out, "WARNING: depth=3")
}

func TestLLMFormatExplain(t *testing.T) {
	f := NewLLMFormatter()
	result := &ExplainResult{
		ErrorCode: "W002", Hash: "abc123", Confidence: 0.9, ResolutionTier: "tier2",
		ResolutionChain: []ResolutionStep{{Kind: "import", File: "src/a.go", Line: 3, Text: "imports pkg/util"}},
		Summary:         "name collides with an existing definition",
	}
	out := f.FormatExplain(result)
	assert.Contains(t, out, "EXPLAIN W002 hash=abc123 confidence=0.90 tier=tier2")
	assert.Contains(t, out, "1. [import] src/a.go:3 imports pkg/util")
	assert.Contains(t, out, "SUMMARY name collides with an existing definition")
}

func TestLLMFormatSearchNoMatches(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatSearch(&SearchResult{Term: "parse"})
	assert.Equal(t, `SEARCH "parse" 0 matches`+"\n", out)
}

func TestLLMFormatSearchWithMatches(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatSearch(&SearchResult{
		Term:    "parse",
		Matches: []SearchMatch{{Name: "ParseConfig", Hash: "fn001", Kind: "function", File: "src/a.go", Line: 10}},
	})
	assert.Contains(t, out, `SEARCH "parse" 1 matches`)
	assert.Contains(t, out, "ParseConfig hash=fn001 kind=function src/a.go:10")
}

func TestLLMFormatCheckNotFound(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatCheck(&CheckResult{Query: "nonexistent"})
	assert.Equal(t, `CHECK "nonexistent" NOT_FOUND`+"\n", out)
}

func TestLLMFormatCheckFound(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatCheck(&CheckResult{
		Query: "ParseConfig", Found: true,
		Matches: []SearchMatch{{Name: "ParseConfig", Hash: "fn001", Kind: "function", File: "src/a.go", Line: 10}},
	})
	assert.Contains(t, out, `CHECK "ParseConfig" FOUND matches=1`)
}

func TestLLMFormatContext(t *testing.T) {
	f := NewLLMFormatter()
	result := &ContextResult{
		File:   "src/auth.go",
		Module: ModuleContext{Module: "src/auth.go", FunctionCount: 2, ResponsibilityKeywords: []string{"auth"}},
		Definitions: []ContextDefinition{
			{Name: "validateToken", Hash: "abc123", Kind: "function", Line: 10, Signature: "func validateToken(token string) bool", IsPublic: true},
		},
	}
	out := f.FormatContext(result)
	assert.Contains(t, out, "CONTEXT src/auth.go")
	assert.Contains(t, out, "MODULE src/auth.go fns=2 [auth]")
	assert.Contains(t, out, "function validateToken hash=abc123 line=10 pub=true")
	assert.Contains(t, out, "sig: func validateToken(token string) bool")
}

func TestLLMFormatAnalyze(t *testing.T) {
	f := NewLLMFormatter()
	result := &AnalyzeResult{
		File: "src/a.go", FunctionCount: 3, ClassCount: 1, TotalCallers: 2, TotalCallees: 5, Isolated: 1,
		Issues: []AnalyzeIssue{{Kind: "isolated", Name: "unusedHelper", Hash: "fn9", Line: 40, Note: "no incoming or outgoing calls in the graph"}},
	}
	out := f.FormatAnalyze(result)
	assert.Contains(t, out, "ANALYZE src/a.go fns=3 classes=1 callers=2 callees=5 isolated=1")
	assert.Contains(t, out, "[isolated] unusedHelper hash=fn9 line=40: no incoming or outgoing calls in the graph")
}

func TestLLMFormatStats(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatStats(&StatsResult{
		ProjectID: "/repo", Compiles: 10, TotalViolations: 3, TotalErrors: 1, TotalWarnings: 2,
		SessionsStarted: 4, AvgCompileMillis: 123.4,
	})
	assert.Equal(t, "STATS project=/repo compiles=10 violations=3(errors=1,warnings=2) sessions=4 avg_compile_ms=123.4\n", out)
}

func TestLLMFixEmpty(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatFix(&FixResult{})
	assert.Contains(t, out, "0 violations")
}

func TestLLMFixWithPlan(t *testing.T) {
	f := NewLLMFormatter()
	result := &FixResult{
		ViolationsAddressed: 1,
		FilesAffected:       1,
		Plans: []FixPlan{{
			Code:       "E001",
			Hash:       "abc123",
			Category:   "broken_caller",
			TargetName: "validateToken",
			Cause:      "Signature changed from (token) to (token, opts)",
			Actions: []FixAction{{
				File:    "src/middleware.go",
				Line:    42,
				OldText: "validateToken(req.token)",
				NewText: "validateToken(req.token, DefaultOptions())",
			}},
		}},
	}
	out := f.FormatFix(result)
	assert.Contains(t, out, "FIX 1 violations in 1 files")
	assert.Contains(t, out, "VIOLATION E001 hash=abc123")
	assert.Contains(t, out, "CAUSE: Signature changed")
	assert.Contains(t, out, "- validateToken(req.token)")
	assert.Contains(t, out, "+ validateToken(req.token, DefaultOptions())")
}

func TestLLMFixApplyClean(t *testing.T) {
	f := NewLLMFormatter()
	result := &FixApplyResult{
		ActionsApplied: 2,
		FilesModified:  []string{"src/a.go"},
		RecompileClean: true,
		Details: []FixApplyDetail{
			{File: "src/a.go", Line: 10, Status: "applied"},
			{File: "src/a.go", Line: 20, Status: "applied"},
		},
	}
	out := f.FormatFixApply(result)
	assert.Contains(t, out, "FIX-APPLY applied=2 failed=0 files=1 recompile=CLEAN")
	assert.Contains(t, out, "APPLIED src/a.go:10")
}

func TestLLMFixApplyWithFailure(t *testing.T) {
	f := NewLLMFormatter()
	errMsg := "file not found: src/missing.go"
	result := &FixApplyResult{
		ActionsApplied:  1,
		ActionsFailed:   1,
		FilesModified:   []string{"src/a.go"},
		RecompileClean:  false,
		RecompileErrors: 2,
		Details: []FixApplyDetail{
			{File: "src/a.go", Line: 10, Status: "applied"},
			{File: "src/missing.go", Line: 5, Status: "failed", Error: &errMsg},
		},
	}
	out := f.FormatFixApply(result)
	assert.Contains(t, out, "recompile=DIRTY")
	assert.Contains(t, out, "FAILED src/missing.go:5 err=file not found")
	assert.Contains(t, out, "RECOMPILE errors=2")
}

func TestLLMNameEmpty(t *testing.T) {
	f := NewLLMFormatter()
	out := f.FormatName(&NameResult{Description: "validate JWT token"})
	assert.Contains(t, out, "no suggestions")
}

func TestLLMNameWithSuggestion(t *testing.T) {
	f := NewLLMFormatter()
	result := &NameResult{
		Description: "validate JWT token and check expiry",
		Suggestions: []enforce.NameSuggestion{{
			Location: "src/auth/validation.go",
			Score:    0.92,
			Keywords: []string{"auth", "jwt", "validation"},
			Alternatives: []enforce.NameAlternative{{
				Location: "src/auth/middleware.go",
				Score:    0.71,
				Keywords: []string{"auth", "middleware"},
			}},
			InsertAfter:   "validateToken",
			InsertLine:    45,
			Convention:    "camelCase, prefix: validate",
			SuggestedName: "validateJWTExpiry",
			LikelyImports: []string{"jwt.Parse", "time.Now"},
			Siblings:      []string{"validateToken", "validateSession"},
		}},
	}
	out := f.FormatName(result)
	assert.Contains(t, out, "LOCATION src/auth/validation.go")
	assert.Contains(t, out, "score=0.92")
	assert.Contains(t, out, "ALT src/auth/middleware.go")
	assert.Contains(t, out, "INSERT after validateToken")
	assert.Contains(t, out, "SUGGESTED validateJWTExpiry")
	assert.Contains(t, out, "IMPORTS likely:")
	assert.Contains(t, out, "SIBLINGS")
}
