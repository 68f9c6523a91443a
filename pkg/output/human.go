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
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kraklabs/keel/pkg/enforce"
)

// HumanFormatter renders results for a terminal: readable, empty stdout on
// a clean compile. Severity coloring is on by default when stdout is a
// real terminal and off otherwise, the same isatty check cmd/keel's own
// progress bar uses to decide whether to render.
type HumanFormatter struct {
	Color bool
}

// NewHumanFormatter detects color support from stdout the way the
// teacher's CLI already gates its progress bar rendering.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{Color: isatty.IsTerminal(os.Stdout.Fd())}
}

func (f *HumanFormatter) colorize(c *color.Color, s string) string {
	if !f.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *HumanFormatter) formatViolationHuman(v enforce.Violation) string {
	severityColor := color.New(color.FgYellow)
	if v.Severity == "ERROR" {
		severityColor = color.New(color.FgRed, color.Bold)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d: %s %s: %s\n", v.File, v.Line, f.colorize(severityColor, v.Severity), v.Code, v.Message)
	if v.FixHint != "" {
		fmt.Fprintf(&b, "  fix: %s\n", v.FixHint)
	}
	return b.String()
}

func (f *HumanFormatter) FormatCompile(result *enforce.CompileResult) string {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		return ""
	}

	var out strings.Builder
	for _, v := range result.Errors {
		out.WriteString(f.formatViolationHuman(v))
	}
	for _, v := range result.Warnings {
		out.WriteString(f.formatViolationHuman(v))
	}
	fmt.Fprintf(&out, "\n%d error(s), %d warning(s) in %d file(s)\n",
		len(result.Errors), len(result.Warnings), result.FilesAnalyzed)
	return out.String()
}

func (f *HumanFormatter) FormatDiscover(result *DiscoverResult) string {
	var out strings.Builder
	t := result.Target
	fmt.Fprintf(&out, "%s [%s]\n  --> %s:%d-%d\n  sig: %s\n", t.Name, t.Hash, t.File, t.LineStart, t.LineEnd, t.Signature)
	if t.Docstring != "" {
		fmt.Fprintf(&out, "  doc: %s\n", t.Docstring)
	}

	if len(result.Upstream) > 0 {
		fmt.Fprintf(&out, "\nCallers (%d):\n", len(result.Upstream))
		for _, c := range result.Upstream {
			fmt.Fprintf(&out, "  %s [%s] at %s:%d\n", c.Name, c.Hash, c.File, c.CallLine)
		}
	}
	if len(result.Downstream) > 0 {
		fmt.Fprintf(&out, "\nCallees (%d):\n", len(result.Downstream))
		for _, c := range result.Downstream {
			fmt.Fprintf(&out, "  %s [%s] at %s:%d\n", c.Name, c.Hash, c.File, c.CallLine)
		}
	}

	if result.ModuleContext.Module != "" {
		mc := result.ModuleContext
		fmt.Fprintf(&out, "\nModule: %s (%d functions)\n", mc.Module, mc.FunctionCount)
		if len(mc.ResponsibilityKeywords) > 0 {
			fmt.Fprintf(&out, "  keywords: %s\n", strings.Join(mc.ResponsibilityKeywords, ", "))
		}
	}
	return out.String()
}

func (f *HumanFormatter) FormatWhere(result *WhereResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s [%s] (%s)\n  --> %s:%d-%d\n", result.Name, result.Hash, result.Kind, result.File, result.LineStart, result.LineEnd)
	if len(result.PreviousHashes) > 0 {
		fmt.Fprintf(&out, "  previously: %s\n", strings.Join(result.PreviousHashes, ", "))
	}
	return out.String()
}

func (f *HumanFormatter) FormatExplain(result *ExplainResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Explanation for %s on hash %s\n", result.ErrorCode, result.Hash)
	fmt.Fprintf(&out, "  confidence: %.0f%%  tier: %s\n\n", result.Confidence*100, result.ResolutionTier)

	out.WriteString("Resolution chain:\n")
	for i, step := range result.ResolutionChain {
		fmt.Fprintf(&out, "  %d. [%s] %s:%d - %s\n", i+1, step.Kind, step.File, step.Line, step.Text)
	}
	fmt.Fprintf(&out, "\n%s\n", result.Summary)
	return out.String()
}

func (f *HumanFormatter) FormatMap(result *MapResult) string {
	s := result.Summary
	var out strings.Builder
	fmt.Fprintf(&out, "Map: %d nodes, %d edges, %d modules, %d functions, %d classes\n",
		s.TotalNodes, s.TotalEdges, s.Modules, s.Functions, s.Classes)
	fmt.Fprintf(&out, "Languages: %s  Type hints: %.0f%%  Docstrings: %.0f%%\n",
		strings.Join(s.Languages, ", "), s.TypeHintCoverage*100, s.DocstringCoverage*100)
	for _, m := range result.Modules {
		fmt.Fprintf(&out, "  %s (%d fns, %d classes, %d edges)\n", m.Path, m.FunctionCount, m.ClassCount, m.EdgeCount)
	}
	return out.String()
}

func (f *HumanFormatter) FormatFix(result *FixResult) string {
	if len(result.Plans) == 0 {
		return "No violations to fix.\n"
	}
	var out strings.Builder
	fmt.Fprintf(&out, "Fix plan: %d violations in %d files\n\n", result.ViolationsAddressed, result.FilesAffected)
	for _, plan := range result.Plans {
		fmt.Fprintf(&out, "[%s] %s on `%s` (hash=%s)\n", plan.Code, plan.Category, plan.TargetName, plan.Hash)
		fmt.Fprintf(&out, "  Cause: %s\n", plan.Cause)
		for _, action := range plan.Actions {
			fmt.Fprintf(&out, "  Fix %s:%d:\n", action.File, action.Line)
			fmt.Fprintf(&out, "    - %s\n    + %s\n", action.OldText, action.NewText)
		}
		out.WriteString("\n")
	}
	return out.String()
}

func (f *HumanFormatter) FormatFixApply(result *FixApplyResult) string {
	status := "CLEAN"
	if !result.RecompileClean {
		status = "DIRTY"
	}
	var out strings.Builder
	fmt.Fprintf(&out, "Applied %d fix(es), %d failed, %d file(s) modified (%s)\n",
		result.ActionsApplied, result.ActionsFailed, len(result.FilesModified), status)
	for _, d := range result.Details {
		fmt.Fprintf(&out, "  %s %s:%d", strings.ToUpper(d.Status), d.File, d.Line)
		if d.Error != nil {
			fmt.Fprintf(&out, " err=%s", *d.Error)
		}
		out.WriteString("\n")
	}
	if !result.RecompileClean {
		fmt.Fprintf(&out, "\nrecompile errors=%d - run `keel compile` for details\n", result.RecompileErrors)
	}
	return out.String()
}

func (f *HumanFormatter) FormatName(result *NameResult) string {
	if len(result.Suggestions) == 0 {
		return fmt.Sprintf("No naming suggestions for %q.\n", result.Description)
	}
	best := result.Suggestions[0]
	var out strings.Builder
	fmt.Fprintf(&out, "Naming suggestion for %q\n\n", result.Description)
	fmt.Fprintf(&out, "  Location: %s (score: %.0f%%)\n", best.Location, best.Score*100)
	fmt.Fprintf(&out, "  Suggested name: %s\n", best.SuggestedName)
	fmt.Fprintf(&out, "  Convention: %s\n", best.Convention)
	if best.InsertAfter != "" {
		fmt.Fprintf(&out, "  Insert after: %s\n", best.InsertAfter)
	}
	if len(best.Siblings) > 0 {
		fmt.Fprintf(&out, "  Siblings: %s\n", strings.Join(best.Siblings, ", "))
	}
	return out.String()
}

func formatSearchMatchHuman(out *strings.Builder, m SearchMatch) {
	fmt.Fprintf(out, "  %s [%s] (%s) %s:%d\n", m.Name, m.Hash, m.Kind, m.File, m.Line)
}

func (f *HumanFormatter) FormatSearch(result *SearchResult) string {
	if len(result.Matches) == 0 {
		return fmt.Sprintf("No matches for %q.\n", result.Term)
	}
	var out strings.Builder
	fmt.Fprintf(&out, "%d match(es) for %q\n", len(result.Matches), result.Term)
	for _, m := range result.Matches {
		formatSearchMatchHuman(&out, m)
	}
	return out.String()
}

func (f *HumanFormatter) FormatCheck(result *CheckResult) string {
	var out strings.Builder
	if !result.Found {
		fmt.Fprintf(&out, "%q not found.\n", result.Query)
		return out.String()
	}
	fmt.Fprintf(&out, "%q found (%d match(es))\n", result.Query, len(result.Matches))
	for _, m := range result.Matches {
		formatSearchMatchHuman(&out, m)
	}
	return out.String()
}

func (f *HumanFormatter) FormatContext(result *ContextResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", result.File)
	if result.Module.Module != "" {
		fmt.Fprintf(&out, "  module: %s (%d functions)\n", result.Module.Module, result.Module.FunctionCount)
		if len(result.Module.ResponsibilityKeywords) > 0 {
			fmt.Fprintf(&out, "  keywords: %s\n", strings.Join(result.Module.ResponsibilityKeywords, ", "))
		}
	}
	for _, d := range result.Definitions {
		pub := ""
		if d.IsPublic {
			pub = " (public)"
		}
		fmt.Fprintf(&out, "  %s %s [%s] line %d%s\n    %s\n", d.Kind, d.Name, d.Hash, d.Line, pub, d.Signature)
	}
	return out.String()
}

func (f *HumanFormatter) FormatAnalyze(result *AnalyzeResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s: %d function(s), %d class(es), %d caller edge(s), %d callee edge(s)\n",
		result.File, result.FunctionCount, result.ClassCount, result.TotalCallers, result.TotalCallees)
	if result.Isolated > 0 {
		fmt.Fprintf(&out, "  %d definition(s) with no callers and no callees\n", result.Isolated)
	}
	for _, issue := range result.Issues {
		fmt.Fprintf(&out, "  [%s] %s (line %d): %s\n", issue.Kind, issue.Name, issue.Line, issue.Note)
	}
	return out.String()
}

func (f *HumanFormatter) FormatStats(result *StatsResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Project %s\n", result.ProjectID)
	fmt.Fprintf(&out, "  compiles: %d\n", result.Compiles)
	fmt.Fprintf(&out, "  violations: %d (%d errors, %d warnings)\n",
		result.TotalViolations, result.TotalErrors, result.TotalWarnings)
	fmt.Fprintf(&out, "  sessions started: %d\n", result.SessionsStarted)
	fmt.Fprintf(&out, "  avg compile time: %.1fms\n", result.AvgCompileMillis)
	return out.String()
}
