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

package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// MonorepoKind names the monorepo tooling detected at a project root.
type MonorepoKind string

const (
	MonorepoNone           MonorepoKind = "none"
	MonorepoCargoWorkspace MonorepoKind = "cargo_workspace"
	MonorepoNpmWorkspaces  MonorepoKind = "npm_workspaces"
	MonorepoGoWorkspace    MonorepoKind = "go_workspace"
	MonorepoNx             MonorepoKind = "nx"
	MonorepoTurbo          MonorepoKind = "turbo"
	MonorepoLerna          MonorepoKind = "lerna"
)

// PackageInfo describes one package/module within a detected monorepo.
type PackageInfo struct {
	Name     string
	Path     string
	Kind     MonorepoKind
	Language string
}

// MonorepoLayout is the result of detecting a monorepo at a project root.
type MonorepoLayout struct {
	Kind     MonorepoKind
	Packages []PackageInfo
}

// DetectMonorepo tries each known monorepo convention in priority order and
// returns the first match; an empty MonorepoLayout with Kind MonorepoNone
// means root is a single, ordinary project.
func DetectMonorepo(root string) MonorepoLayout {
	for _, detect := range []func(string) (MonorepoLayout, bool){
		detectCargoWorkspace,
		detectNpmWorkspaces,
		detectGoWorkspace,
		detectNx,
		detectTurbo,
		detectLerna,
	} {
		if layout, ok := detect(root); ok {
			return layout
		}
	}
	return MonorepoLayout{Kind: MonorepoNone}
}

func detectCargoWorkspace(root string) (MonorepoLayout, bool) {
	content, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil || !strings.Contains(string(content), "[workspace]") {
		return MonorepoLayout{}, false
	}
	globs := extractTomlArray(string(content), "members")
	packages := expandGlobs(root, globs, "rust")
	if len(packages) == 0 {
		return MonorepoLayout{}, false
	}
	return MonorepoLayout{Kind: MonorepoCargoWorkspace, Packages: tagKind(packages, MonorepoCargoWorkspace)}, true
}

func detectNpmWorkspaces(root string) (MonorepoLayout, bool) {
	globs, ok := readPackageJSONWorkspaces(root)
	if !ok || len(globs) == 0 {
		return MonorepoLayout{}, false
	}
	packages := expandGlobs(root, globs, "typescript")
	if len(packages) == 0 {
		return MonorepoLayout{}, false
	}
	return MonorepoLayout{Kind: MonorepoNpmWorkspaces, Packages: tagKind(packages, MonorepoNpmWorkspaces)}, true
}

func detectGoWorkspace(root string) (MonorepoLayout, bool) {
	content, err := os.ReadFile(filepath.Join(root, "go.work"))
	if err != nil {
		return MonorepoLayout{}, false
	}
	var packages []PackageInfo
	inUse := false
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "use (":
			inUse = true
			continue
		case trimmed == ")":
			inUse = false
			continue
		case inUse:
			addGoWorkspaceMember(root, trimmed, &packages)
		case strings.HasPrefix(trimmed, "use ") && !strings.Contains(trimmed, "("):
			addGoWorkspaceMember(root, strings.TrimSpace(strings.TrimPrefix(trimmed, "use ")), &packages)
		}
	}
	if len(packages) == 0 {
		return MonorepoLayout{}, false
	}
	return MonorepoLayout{Kind: MonorepoGoWorkspace, Packages: packages}, true
}

func addGoWorkspaceMember(root, dir string, packages *[]PackageInfo) {
	dir = strings.Trim(dir, `"`)
	if dir == "" || strings.HasPrefix(dir, "//") {
		return
	}
	full := filepath.Join(root, dir)
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return
	}
	*packages = append(*packages, PackageInfo{
		Name:     filepath.Base(dir),
		Path:     full,
		Kind:     MonorepoGoWorkspace,
		Language: "go",
	})
}

func detectNx(root string) (MonorepoLayout, bool) {
	if _, err := os.Stat(filepath.Join(root, "nx.json")); err != nil {
		return MonorepoLayout{}, false
	}
	var packages []PackageInfo
	scanForProjectJSON(root, root, &packages, 3)
	if len(packages) == 0 {
		return MonorepoLayout{}, false
	}
	return MonorepoLayout{Kind: MonorepoNx, Packages: tagKind(packages, MonorepoNx)}, true
}

func detectTurbo(root string) (MonorepoLayout, bool) {
	if _, err := os.Stat(filepath.Join(root, "turbo.json")); err != nil {
		return MonorepoLayout{}, false
	}
	globs, ok := readPackageJSONWorkspaces(root)
	if !ok {
		return MonorepoLayout{}, false
	}
	packages := expandGlobs(root, globs, "typescript")
	if len(packages) == 0 {
		return MonorepoLayout{}, false
	}
	return MonorepoLayout{Kind: MonorepoTurbo, Packages: tagKind(packages, MonorepoTurbo)}, true
}

func detectLerna(root string) (MonorepoLayout, bool) {
	content, err := os.ReadFile(filepath.Join(root, "lerna.json"))
	if err != nil {
		return MonorepoLayout{}, false
	}
	var parsed struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(content, &parsed); err != nil {
		return MonorepoLayout{}, false
	}
	globs := parsed.Packages
	if len(globs) == 0 {
		globs = []string{"packages/*"}
	}
	packages := expandGlobs(root, globs, "typescript")
	if len(packages) == 0 {
		return MonorepoLayout{}, false
	}
	return MonorepoLayout{Kind: MonorepoLerna, Packages: tagKind(packages, MonorepoLerna)}, true
}

func tagKind(packages []PackageInfo, kind MonorepoKind) []PackageInfo {
	for i := range packages {
		packages[i].Kind = kind
	}
	return packages
}

// readPackageJSONWorkspaces reads root/package.json and returns its
// "workspaces" globs, supporting both the npm array form and the
// yarn-style {"packages": [...]} object form.
func readPackageJSONWorkspaces(root string) ([]string, bool) {
	content, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil, false
	}
	var arrForm struct {
		Workspaces []string `json:"workspaces"`
	}
	if err := json.Unmarshal(content, &arrForm); err == nil && len(arrForm.Workspaces) > 0 {
		return arrForm.Workspaces, true
	}
	var objForm struct {
		Workspaces struct {
			Packages []string `json:"packages"`
		} `json:"workspaces"`
	}
	if err := json.Unmarshal(content, &objForm); err == nil && len(objForm.Workspaces.Packages) > 0 {
		return objForm.Workspaces.Packages, true
	}
	return nil, false
}

// extractTomlArray pulls a `key = [...]` array of quoted strings out of raw
// TOML text without pulling in a TOML library, since Cargo.toml's member
// list never nests and is read-only input here.
func extractTomlArray(content, key string) []string {
	idx := strings.Index(content, key+" =")
	if idx == -1 {
		idx = strings.Index(content, key+"=")
	}
	if idx == -1 {
		return nil
	}
	rest := content[idx:]
	open := strings.Index(rest, "[")
	end := strings.Index(rest, "]")
	if open == -1 || end == -1 || end < open {
		return nil
	}
	inner := rest[open+1 : end]
	var out []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandGlobs resolves each workspace glob (e.g. "packages/*") to concrete
// directories under root and builds a PackageInfo for each.
func expandGlobs(root string, globs []string, language string) []PackageInfo {
	var packages []PackageInfo
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(root, g))
		if err != nil {
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.IsDir() {
				continue
			}
			packages = append(packages, PackageInfo{
				Name:     filepath.Base(m),
				Path:     m,
				Language: language,
			})
		}
	}
	return packages
}

// scanForProjectJSON walks dir up to maxDepth levels looking for project.json
// files, Nx's per-package manifest.
func scanForProjectJSON(root, dir string, packages *[]PackageInfo, depth int) {
	if depth < 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == "node_modules" || e.Name() == ".git" {
			continue
		}
		childDir := filepath.Join(dir, e.Name())
		projectJSON := filepath.Join(childDir, "project.json")
		if _, err := os.Stat(projectJSON); err == nil {
			*packages = append(*packages, PackageInfo{
				Name:     e.Name(),
				Path:     childDir,
				Language: "typescript",
			})
			continue
		}
		scanForProjectJSON(root, childDir, packages, depth-1)
	}
}
