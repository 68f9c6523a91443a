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

import "github.com/kraklabs/keel/pkg/enforce"

// Formatter renders one command's typed result as text. All three
// implementations (Human, LLM, JSON) share this surface so cmd/keel and
// pkg/server can pick one without branching on format elsewhere.
type Formatter interface {
	FormatCompile(result *enforce.CompileResult) string
	FormatDiscover(result *DiscoverResult) string
	FormatWhere(result *WhereResult) string
	FormatExplain(result *ExplainResult) string
	FormatMap(result *MapResult) string
	FormatFix(result *FixResult) string
	FormatFixApply(result *FixApplyResult) string
	FormatName(result *NameResult) string
	FormatSearch(result *SearchResult) string
	FormatCheck(result *CheckResult) string
	FormatContext(result *ContextResult) string
	FormatAnalyze(result *AnalyzeResult) string
	FormatStats(result *StatsResult) string
}
