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
	"strings"
)

// NameSuggestion is one candidate location for a new definition, ranked by
// how well its keywords match a module's responsibility profile. Backs the
// `keel name` command.
type NameSuggestion struct {
	Location       string           `json:"location"`
	Score          float64          `json:"score"`
	Keywords       []string         `json:"keywords"`
	Alternatives   []NameAlternative `json:"alternatives"`
	InsertAfter    string           `json:"insert_after,omitempty"`
	InsertLine     int              `json:"insert_line,omitempty"`
	Convention     string           `json:"convention"`
	SuggestedName  string           `json:"suggested_name"`
	LikelyImports  []string         `json:"likely_imports,omitempty"`
	Siblings       []string         `json:"siblings,omitempty"`
}

// NameAlternative is a runner-up location from SuggestName's ranking.
type NameAlternative struct {
	Location string   `json:"location"`
	Score    float64  `json:"score"`
	Keywords []string `json:"keywords"`
}

// ModuleCandidate is the input to SuggestName: one module's location,
// existing content, and derived responsibility keywords.
type ModuleCandidate struct {
	Path                 string
	ResponsibilityKeywords []string
	FunctionNamePrefixes []string
	Language             string
	Siblings             []string
	LastFunctionName     string
	LastFunctionLine     int
}

// keywordsFromDescription splits a free-text description into lowercase
// words, dropping short stop-words, for matching against module profiles.
func keywordsFromDescription(description string) []string {
	stop := map[string]bool{"a": true, "an": true, "the": true, "to": true, "of": true, "for": true, "that": true, "and": true}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(description)) {
		w = strings.Trim(w, ".,;:!?\"'")
		if w == "" || stop[w] || len(w) < 3 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// candidateScore counts keyword overlap between a description's keywords
// and a module's responsibility keywords / function name prefixes.
func candidateScore(keywords []string, c ModuleCandidate) float64 {
	score := 0.0
	for _, kw := range keywords {
		for _, rk := range c.ResponsibilityKeywords {
			if strings.EqualFold(kw, rk) {
				score += 1.0
			}
		}
		for _, fp := range c.FunctionNamePrefixes {
			if strings.EqualFold(kw, fp) {
				score += 0.5
			}
		}
	}
	return score
}

// conventionFor returns the naming convention label for a language, used to
// render SuggestedName.
func conventionFor(language string) string {
	switch language {
	case "go":
		return "PascalCase/camelCase"
	case "python":
		return "snake_case"
	case "typescript", "javascript":
		return "camelCase"
	case "rust":
		return "snake_case"
	default:
		return "camelCase"
	}
}

// suggestedNameFor turns a free-text description's keywords into an
// identifier matching the target module's language convention.
func suggestedNameFor(keywords []string, language string) string {
	if len(keywords) == 0 {
		return "unnamed"
	}
	switch language {
	case "python", "rust":
		return strings.Join(keywords, "_")
	default:
		out := keywords[0]
		for _, w := range keywords[1:] {
			if w == "" {
				continue
			}
			out += strings.ToUpper(w[:1]) + w[1:]
		}
		return out
	}
}

// SuggestName ranks candidates by keyword overlap with description and
// returns the best match plus up to three alternatives.
func SuggestName(description string, candidates []ModuleCandidate) *NameSuggestion {
	keywords := keywordsFromDescription(description)
	if len(candidates) == 0 {
		return &NameSuggestion{
			Keywords:      keywords,
			Convention:    conventionFor(""),
			SuggestedName: suggestedNameFor(keywords, ""),
		}
	}

	type scored struct {
		c     ModuleCandidate
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{c: c, score: candidateScore(keywords, c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	best := ranked[0]
	suggestion := &NameSuggestion{
		Location:      best.c.Path,
		Score:         best.score,
		Keywords:      keywords,
		Convention:    conventionFor(best.c.Language),
		SuggestedName: suggestedNameFor(keywords, best.c.Language),
		InsertAfter:   best.c.LastFunctionName,
		InsertLine:    best.c.LastFunctionLine,
		Siblings:      best.c.Siblings,
	}

	limit := len(ranked) - 1
	if limit > 3 {
		limit = 3
	}
	for i := 1; i <= limit; i++ {
		suggestion.Alternatives = append(suggestion.Alternatives, NameAlternative{
			Location: ranked[i].c.Path,
			Score:    ranked[i].score,
			Keywords: keywords,
		})
	}
	return suggestion
}
