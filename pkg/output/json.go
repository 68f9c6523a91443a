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
	"encoding/json"

	"github.com/kraklabs/keel/pkg/enforce"
)

// JSONFormatter renders every result as a single compact JSON object, the
// schema-stable format scripts and CI pipelines can depend on across
// releases. A clean compile still renders a summary object here, unlike
// Human/LLM.
type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter { return &JSONFormatter{} }

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to marshal result"}`
	}
	return string(b)
}

func (f *JSONFormatter) FormatCompile(result *enforce.CompileResult) string  { return marshal(result) }
func (f *JSONFormatter) FormatDiscover(result *DiscoverResult) string       { return marshal(result) }
func (f *JSONFormatter) FormatWhere(result *WhereResult) string             { return marshal(result) }
func (f *JSONFormatter) FormatExplain(result *ExplainResult) string         { return marshal(result) }
func (f *JSONFormatter) FormatMap(result *MapResult) string                 { return marshal(result) }
func (f *JSONFormatter) FormatFix(result *FixResult) string                 { return marshal(result) }
func (f *JSONFormatter) FormatFixApply(result *FixApplyResult) string       { return marshal(result) }
func (f *JSONFormatter) FormatName(result *NameResult) string               { return marshal(result) }
func (f *JSONFormatter) FormatSearch(result *SearchResult) string           { return marshal(result) }
func (f *JSONFormatter) FormatCheck(result *CheckResult) string             { return marshal(result) }
func (f *JSONFormatter) FormatContext(result *ContextResult) string         { return marshal(result) }
func (f *JSONFormatter) FormatAnalyze(result *AnalyzeResult) string         { return marshal(result) }
func (f *JSONFormatter) FormatStats(result *StatsResult) string             { return marshal(result) }
