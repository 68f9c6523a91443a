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

// Package config loads and saves .keel/keel.json, the project's single
// configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnforceConfig toggles individual rule families.
type EnforceConfig struct {
	TypeHints  bool `json:"type_hints"`
	Docstrings bool `json:"docstrings"`
	Placement  bool `json:"placement"`
}

// CircuitBreakerConfig tunes the escalation threshold.
type CircuitBreakerConfig struct {
	MaxFailures uint32 `json:"max_failures"`
}

// BatchConfig tunes batch-mode deferral.
type BatchConfig struct {
	TimeoutSeconds uint64 `json:"timeout_seconds"`
}

// MonorepoConfig enables per-package scoping for multi-project repos.
type MonorepoConfig struct {
	Enabled  bool     `json:"enabled"`
	Kind     string   `json:"kind,omitempty"`
	Packages []string `json:"packages,omitempty"`
}

// Tier3Config points at external resolvers for languages where Tier 1/2
// heuristics are insufficient.
type Tier3Config struct {
	SCIPPaths   map[string]string   `json:"scip_paths,omitempty"`
	LSPCommands map[string][]string `json:"lsp_commands,omitempty"`
}

// Config is the top-level keel.json document. Unknown keys are preserved
// via Extra so a round-trip save doesn't drop fields this binary doesn't
// understand yet.
type Config struct {
	Version        string               `json:"version"`
	Languages      []string             `json:"languages"`
	Enforce        EnforceConfig        `json:"enforce"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	Batch          BatchConfig          `json:"batch"`
	IgnorePatterns []string             `json:"ignore_patterns,omitempty"`
	Monorepo       MonorepoConfig       `json:"monorepo,omitempty"`
	Tier3          Tier3Config          `json:"tier3,omitempty"`
	Extra          map[string]json.RawMessage `json:"-"`
}

// Default returns the configuration used when no keel.json exists yet.
func Default() *Config {
	return &Config{
		Version:        "0.1.0",
		Languages:      []string{},
		Enforce:        EnforceConfig{TypeHints: true, Docstrings: true, Placement: true},
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
		Batch:          BatchConfig{TimeoutSeconds: 60},
	}
}

// Dir returns the .keel directory within root.
func Dir(root string) string {
	return filepath.Join(root, ".keel")
}

// Path returns the keel.json path within root.
func Path(root string) string {
	return filepath.Join(Dir(root), "keel.json")
}

// Load reads .keel/keel.json under root. A missing file yields Default()
// with no error; a malformed file yields Default() with a warning printed
// to stderr, matching the teacher's "warn and fall back" loader behavior.
func Load(root string) *Config {
	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(os.Stderr, "keel: warning: failed to parse %s: %v, using defaults\n", path, err)
		return Default()
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "keel: warning: failed to parse %s: %v, using defaults\n", path, err)
		return Default()
	}

	known := map[string]bool{
		"version": true, "languages": true, "enforce": true, "circuit_breaker": true,
		"batch": true, "ignore_patterns": true, "monorepo": true, "tier3": true,
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			extra[k] = v
		}
	}
	cfg.Extra = extra
	return cfg
}

// Save writes cfg to .keel/keel.json, creating the directory if needed and
// preserving any unknown keys recorded in Extra.
func Save(root string, cfg *Config) error {
	dir := Dir(root)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create .keel dir: %w", err)
	}

	merged := map[string]json.RawMessage{}
	for k, v := range cfg.Extra {
		merged[k] = v
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("remarshal config: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	out = append(out, '\n')

	tmp := Path(root) + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, Path(root)); err != nil {
		return fmt.Errorf("rename config into place: %w", err)
	}
	return nil
}
