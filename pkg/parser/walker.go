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

// Package parser walks a repository, dispatches each eligible file to the
// right language resolver, and layers the three resolution tiers: Tier 1
// (tree-sitter, same-file), Tier 2 (cross-file heuristics), Tier 3 (an
// external indexer consulted through pkg/tier3).
package parser

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultIgnores are skipped regardless of .gitignore/.keelignore content —
// these directories are never source of truth for the structural graph.
var defaultIgnores = []string{
	".git", ".keel", "node_modules", "vendor", "dist", "build",
	"__pycache__", ".venv", "venv", "target", ".mypy_cache", ".pytest_cache",
}

// extensionLanguage maps a recognized source extension to its language tag.
var extensionLanguage = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".rs":  "rust",
}

// LanguageForPath returns the language tag for path's extension, or "" if
// the extension is not recognized.
func LanguageForPath(path string) string {
	return extensionLanguage[strings.ToLower(filepath.Ext(path))]
}

// ignoreRule is one parsed line from .gitignore/.keelignore: a glob pattern
// plus whether it was negated with a leading '!'.
type ignoreRule struct {
	pattern string
	negate  bool
	dirOnly bool
}

// IgnoreSet layers the default ignores with .gitignore- and
// .keelignore-syntax rules loaded from a root directory.
type IgnoreSet struct {
	rules []ignoreRule
}

// LoadIgnoreSet reads root/.gitignore and root/.keelignore, if present, on
// top of the built-in default ignores.
func LoadIgnoreSet(root string) *IgnoreSet {
	set := &IgnoreSet{}
	for _, d := range defaultIgnores {
		set.rules = append(set.rules, ignoreRule{pattern: d, dirOnly: true})
	}
	set.loadFile(filepath.Join(root, ".gitignore"))
	set.loadFile(filepath.Join(root, ".keelignore"))
	return set
}

func (s *IgnoreSet) loadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := ignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		rule.pattern = strings.TrimPrefix(line, "/")
		s.rules = append(s.rules, rule)
	}
}

// Matches reports whether relPath (slash-separated, relative to root)
// should be excluded from the walk. Later rules override earlier ones,
// matching gitignore's last-match-wins precedence; a directory-only rule
// matches any path under a directory component with that name.
func (s *IgnoreSet) Matches(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	excluded := false
	for _, r := range s.rules {
		if r.matches(relPath, isDir) {
			excluded = !r.negate
		}
	}
	return excluded
}

func (r ignoreRule) matches(relPath string, isDir bool) bool {
	segments := strings.Split(relPath, "/")
	for i, seg := range segments {
		if ok, _ := filepath.Match(r.pattern, seg); ok {
			if !r.dirOnly || isDir || i < len(segments)-1 {
				return true
			}
		}
	}
	if ok, _ := filepath.Match(r.pattern, relPath); ok {
		return true
	}
	return false
}

// WalkFiles walks root, skipping ignored paths, and returns every regular
// file path (relative to root, slash-separated) whose extension maps to a
// known language.
func WalkFiles(root string) ([]string, error) {
	ignores := LoadIgnoreSet(root)
	var out []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if ignores.Matches(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if LanguageForPath(path) == "" {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
