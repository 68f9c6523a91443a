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
	"sort"
	"strings"

	"github.com/kraklabs/keel/pkg/enforce"
)

// LLMFormatter renders results for agent consumption: dense, depth-aware,
// and tagged with a pressure/budget directive so a calling agent knows
// whether to keep generating or stop and fix. Every format method returns
// plain text, never JSON, so it can be dropped straight into a prompt.
type LLMFormatter struct {
	CompileDepth int
	MapDepth     int
	MaxTokens    int
}

// NewLLMFormatter returns the default agent-facing formatter: compile at
// depth 1 (file-grouped), map at depth 1 (modules + hotspots).
func NewLLMFormatter() *LLMFormatter {
	return &LLMFormatter{CompileDepth: 1, MapDepth: 1, MaxTokens: 2000}
}

// NewLLMFormatterWithDepths lets a caller (cmd/keel's --depth flag, the MCP
// tool schema) pick both depths independently.
func NewLLMFormatterWithDepths(mapDepth, compileDepth int) *LLMFormatter {
	return &LLMFormatter{CompileDepth: compileDepth, MapDepth: mapDepth, MaxTokens: 2000}
}

func (f *LLMFormatter) FormatCompile(result *enforce.CompileResult) string {
	pressure := enforce.PressureFromErrorCount(len(result.Errors))
	budget := pressure.BudgetDirective()

	switch f.CompileDepth {
	case 0:
		return fmt.Sprintf("errors=%d warnings=%d PRESSURE=%s BUDGET=%s\n",
			len(result.Errors), len(result.Warnings), pressure, budget)
	case 2:
		return f.formatCompileDepth2(result, pressure, budget)
	default:
		return f.formatCompileDepth1(result, pressure, budget)
	}
}

func (f *LLMFormatter) formatCompileDepth1(result *enforce.CompileResult, pressure enforce.PressureLevel, budget string) string {
	var out strings.Builder

	byFile := make(map[string][]enforce.Violation)
	var order []string
	add := func(v enforce.Violation) {
		if _, ok := byFile[v.File]; !ok {
			order = append(order, v.File)
		}
		byFile[v.File] = append(byFile[v.File], v)
	}
	for _, v := range result.Errors {
		add(v)
	}
	for _, v := range result.Warnings {
		add(v)
	}

	for _, file := range order {
		fmt.Fprintf(&out, "FILE %s\n", file)
		for _, v := range byFile[file] {
			fmt.Fprintf(&out, "  %s line=%d: %s\n", v.Code, v.Line, v.Message)
		}
	}
	fmt.Fprintf(&out, "PRESSURE=%s BUDGET=%s\n", pressure, budget)
	return out.String()
}

func (f *LLMFormatter) formatCompileDepth2(result *enforce.CompileResult, pressure enforce.PressureLevel, budget string) string {
	var out strings.Builder
	writeViolation := func(v enforce.Violation) {
		fmt.Fprintf(&out, "VIOLATION %s hash=%s\n", v.Code, v.Hash)
		fmt.Fprintf(&out, "  %s:%d %s\n", v.File, v.Line, v.Message)
		if v.FixHint != "" {
			fmt.Fprintf(&out, "  FIX: %s\n", v.FixHint)
		}
	}
	for _, v := range result.Errors {
		writeViolation(v)
	}
	for _, v := range result.Warnings {
		writeViolation(v)
	}
	fmt.Fprintf(&out, "PRESSURE=%s BUDGET=%s\n", pressure, budget)
	return out.String()
}

func formatMapDepth0(s MapSummary) string {
	return fmt.Sprintf("MAP nodes=%d edges=%d modules=%d fns=%d classes=%d\n",
		s.TotalNodes, s.TotalEdges, s.Modules, s.Functions, s.Classes)
}

func formatMapDepth1(result *MapResult) string {
	s := result.Summary
	var out strings.Builder
	out.WriteString(formatMapDepth0(s))
	fmt.Fprintf(&out, "LANGS %s HINTS=%.1f%% DOCS=%.1f%%\n",
		strings.Join(s.Languages, ","), s.TypeHintCoverage*100, s.DocstringCoverage*100)

	if len(result.Hotspots) > 0 {
		out.WriteString("HOTSPOTS (most connected):\n")
		for _, h := range result.Hotspots {
			fmt.Fprintf(&out, "  %s callers=%d callees=%d", h.Path, h.Callers, h.Callees)
			if len(h.Keywords) > 0 {
				fmt.Fprintf(&out, " [%s]", strings.Join(h.Keywords, ","))
			}
			out.WriteString("\n")
		}
	}

	for _, m := range result.Modules {
		fmt.Fprintf(&out, "MODULE %s fns=%d cls=%d edges=%d", m.Path, m.FunctionCount, m.ClassCount, m.EdgeCount)
		if len(m.ResponsibilityKeywords) > 0 {
			fmt.Fprintf(&out, " [%s]", strings.Join(m.ResponsibilityKeywords, ","))
		}
		out.WriteString("\n")
		for _, fn := range m.FunctionNames {
			fmt.Fprintf(&out, "  %s hash=%s callers=%d callees=%d\n", fn.Name, fn.Hash, fn.Callers, fn.Callees)
		}
	}
	return out.String()
}

func formatMapDepth2(result *MapResult) string {
	out := formatMapDepth1(result)
	if len(result.Functions) == 0 {
		return out
	}
	var b strings.Builder
	b.WriteString(out)
	b.WriteString("FUNCTIONS:\n")
	for _, fn := range result.Functions {
		fmt.Fprintf(&b, "  %s hash=%s %s:%d callers=%d callees=%d pub=%t\n",
			fn.Name, fn.Hash, fn.File, fn.Line, fn.Callers, fn.Callees, fn.IsPublic)
		fmt.Fprintf(&b, "    sig: %s\n", fn.Signature)
	}
	return b.String()
}

func formatMapDepth3(result *MapResult) string {
	return "WARNING: depth=3 produces unbounded output (debug only)\n" + formatMapDepth2(result)
}

// truncateToBudget keeps lines until their accumulated rough token cost
// (len/4, the same crude estimator the teacher's ecosystem uses for
// pre-tokenizer budget checks) would exceed maxTokens, reporting how many
// lines were dropped.
func truncateToBudget(lines []string, maxTokens int) ([]string, int) {
	if maxTokens <= 0 {
		return lines, 0
	}
	used := 0
	for i, line := range lines {
		cost := len(line)/4 + 1
		if used+cost > maxTokens {
			return lines[:i], len(lines) - i
		}
		used += cost
	}
	return lines, 0
}

func (f *LLMFormatter) FormatMap(result *MapResult) string {
	var raw string
	switch f.MapDepth {
	case 0:
		return formatMapDepth0(result.Summary)
	case 2:
		raw = formatMapDepth2(result)
	default:
		if f.MapDepth >= 3 {
			raw = formatMapDepth3(result)
		} else {
			raw = formatMapDepth1(result)
		}
	}

	lines := strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
	kept, overflow := truncateToBudget(lines, f.MaxTokens)
	var out strings.Builder
	if len(kept) > 0 {
		out.WriteString(strings.Join(kept, "\n"))
		out.WriteString("\n")
	}
	if overflow > 0 {
		fmt.Fprintf(&out, "... +%d more line(s) (use --depth 0 for summary or increase --max-tokens)\n", overflow)
	}
	return out.String()
}

func (f *LLMFormatter) FormatDiscover(result *DiscoverResult) string {
	var out strings.Builder
	t := result.Target
	fmt.Fprintf(&out, "TARGET %s hash=%s %s:%d-%d\n", t.Name, t.Hash, t.File, t.LineStart, t.LineEnd)
	fmt.Fprintf(&out, "SIG %s\n", t.Signature)
	for _, c := range result.Upstream {
		fmt.Fprintf(&out, "CALLER %s hash=%s %s:%d\n", c.Name, c.Hash, c.File, c.CallLine)
	}
	for _, c := range result.Downstream {
		fmt.Fprintf(&out, "CALLEE %s hash=%s %s:%d\n", c.Name, c.Hash, c.File, c.CallLine)
	}
	if result.ModuleContext.Module != "" {
		fmt.Fprintf(&out, "MODULE %s fns=%d\n", result.ModuleContext.Module, result.ModuleContext.FunctionCount)
	}
	return out.String()
}

func (f *LLMFormatter) FormatWhere(result *WhereResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "WHERE %s hash=%s kind=%s %s:%d-%d\n", result.Name, result.Hash, result.Kind, result.File, result.LineStart, result.LineEnd)
	if len(result.PreviousHashes) > 0 {
		fmt.Fprintf(&out, "PREVIOUS %s\n", strings.Join(result.PreviousHashes, ","))
	}
	return out.String()
}

func (f *LLMFormatter) FormatExplain(result *ExplainResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "EXPLAIN %s hash=%s confidence=%.2f tier=%s\n",
		result.ErrorCode, result.Hash, result.Confidence, result.ResolutionTier)
	for i, step := range result.ResolutionChain {
		fmt.Fprintf(&out, "  %d. [%s] %s:%d %s\n", i+1, step.Kind, step.File, step.Line, step.Text)
	}
	fmt.Fprintf(&out, "SUMMARY %s\n", result.Summary)
	return out.String()
}

func (f *LLMFormatter) FormatFix(result *FixResult) string {
	if len(result.Plans) == 0 {
		return "FIX 0 violations - nothing to fix\n"
	}

	files := make(map[string]struct{})
	for _, plan := range result.Plans {
		for _, action := range plan.Actions {
			files[action.File] = struct{}{}
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "FIX %d violations in %d files\n", result.ViolationsAddressed, len(files))

	for _, plan := range result.Plans {
		fmt.Fprintf(&out, "\nVIOLATION %s hash=%s %s on `%s`\n", plan.Code, plan.Hash, plan.Category, plan.TargetName)
		fmt.Fprintf(&out, "  CAUSE: %s\n", plan.Cause)
		if len(plan.Actions) > 0 {
			fmt.Fprintf(&out, "  CALLERS: %d\n", len(plan.Actions))
		}
		for _, action := range plan.Actions {
			fmt.Fprintf(&out, "  FIX %s:%d\n", action.File, action.Line)
			if action.OldText != "" {
				fmt.Fprintf(&out, "    - %s\n", action.OldText)
			}
			if action.NewText != "" {
				fmt.Fprintf(&out, "    + %s\n", action.NewText)
			}
		}
	}
	return out.String()
}

func (f *LLMFormatter) FormatFixApply(result *FixApplyResult) string {
	status := "CLEAN"
	if !result.RecompileClean {
		status = "DIRTY"
	}
	var out strings.Builder
	fmt.Fprintf(&out, "FIX-APPLY applied=%d failed=%d files=%d recompile=%s\n",
		result.ActionsApplied, result.ActionsFailed, len(result.FilesModified), status)

	for _, d := range result.Details {
		fmt.Fprintf(&out, "  %s %s:%d", strings.ToUpper(d.Status), d.File, d.Line)
		if d.Error != nil {
			fmt.Fprintf(&out, " err=%s", *d.Error)
		}
		out.WriteString("\n")
	}

	if !result.RecompileClean {
		fmt.Fprintf(&out, "RECOMPILE errors=%d - run `keel compile` for details\n", result.RecompileErrors)
	}
	return out.String()
}

func (f *LLMFormatter) FormatName(result *NameResult) string {
	if len(result.Suggestions) == 0 {
		return fmt.Sprintf("NAME no suggestions for %q\n", result.Description)
	}

	best := result.Suggestions[0]
	var out strings.Builder
	fmt.Fprintf(&out, "NAME suggestion for %q\n", result.Description)
	fmt.Fprintf(&out, "\nLOCATION %s (best match: [%s] score=%.2f)\n",
		best.Location, strings.Join(best.Keywords, ","), best.Score)

	alts := append([]enforce.NameAlternative(nil), best.Alternatives...)
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].Score > alts[j].Score })
	for _, alt := range alts {
		fmt.Fprintf(&out, "  ALT %s ([%s] score=%.2f)\n", alt.Location, strings.Join(alt.Keywords, ","), alt.Score)
	}

	if best.InsertAfter != "" {
		fmt.Fprintf(&out, "INSERT after %s (line %d) - same responsibility cluster\n", best.InsertAfter, best.InsertLine)
	}

	fmt.Fprintf(&out, "CONVENTION %s (matches module style)\n", best.Convention)
	fmt.Fprintf(&out, "SUGGESTED %s\n", best.SuggestedName)

	if len(best.LikelyImports) > 0 {
		fmt.Fprintf(&out, "IMPORTS likely: %s (used by siblings)\n", strings.Join(best.LikelyImports, ", "))
	}
	if len(best.Siblings) > 0 {
		fmt.Fprintf(&out, "SIBLINGS %s\n", strings.Join(best.Siblings, ", "))
	}
	return out.String()
}

func (f *LLMFormatter) FormatSearch(result *SearchResult) string {
	if len(result.Matches) == 0 {
		return fmt.Sprintf("SEARCH %q 0 matches\n", result.Term)
	}
	var out strings.Builder
	fmt.Fprintf(&out, "SEARCH %q %d matches\n", result.Term, len(result.Matches))
	for _, m := range result.Matches {
		fmt.Fprintf(&out, "  %s hash=%s kind=%s %s:%d\n", m.Name, m.Hash, m.Kind, m.File, m.Line)
	}
	return out.String()
}

func (f *LLMFormatter) FormatCheck(result *CheckResult) string {
	if !result.Found {
		return fmt.Sprintf("CHECK %q NOT_FOUND\n", result.Query)
	}
	var out strings.Builder
	fmt.Fprintf(&out, "CHECK %q FOUND matches=%d\n", result.Query, len(result.Matches))
	for _, m := range result.Matches {
		fmt.Fprintf(&out, "  %s hash=%s kind=%s %s:%d\n", m.Name, m.Hash, m.Kind, m.File, m.Line)
	}
	return out.String()
}

func (f *LLMFormatter) FormatContext(result *ContextResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "CONTEXT %s\n", result.File)
	if result.Module.Module != "" {
		fmt.Fprintf(&out, "MODULE %s fns=%d", result.Module.Module, result.Module.FunctionCount)
		if len(result.Module.ResponsibilityKeywords) > 0 {
			fmt.Fprintf(&out, " [%s]", strings.Join(result.Module.ResponsibilityKeywords, ","))
		}
		out.WriteString("\n")
	}
	for _, d := range result.Definitions {
		fmt.Fprintf(&out, "  %s %s hash=%s line=%d pub=%t\n", d.Kind, d.Name, d.Hash, d.Line, d.IsPublic)
		fmt.Fprintf(&out, "    sig: %s\n", d.Signature)
	}
	return out.String()
}

func (f *LLMFormatter) FormatAnalyze(result *AnalyzeResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "ANALYZE %s fns=%d classes=%d callers=%d callees=%d isolated=%d\n",
		result.File, result.FunctionCount, result.ClassCount, result.TotalCallers, result.TotalCallees, result.Isolated)
	for _, issue := range result.Issues {
		fmt.Fprintf(&out, "  [%s] %s hash=%s line=%d: %s\n", issue.Kind, issue.Name, issue.Hash, issue.Line, issue.Note)
	}
	return out.String()
}

func (f *LLMFormatter) FormatStats(result *StatsResult) string {
	return fmt.Sprintf("STATS project=%s compiles=%d violations=%d(errors=%d,warnings=%d) sessions=%d avg_compile_ms=%.1f\n",
		result.ProjectID, result.Compiles, result.TotalViolations, result.TotalErrors, result.TotalWarnings,
		result.SessionsStarted, result.AvgCompileMillis)
}
