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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/config"
	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/store"
)

func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing .keel directory")
	_ = fs.Parse(args)

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}

	dir := config.Dir(root)
	if _, err := os.Stat(dir); err == nil && !*force {
		errkit.FatalError(errkit.New("already initialized").
			WithDetail(dir+" already exists").
			WithSuggestion("use --force to reinitialize"), globals.jsonMode())
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		errkit.FatalError(errkit.New("failed to create .keel directory").WithCause(err), globals.jsonMode())
	}

	cfg := config.Default()
	layout := parser.DetectMonorepo(root)
	if layout.Kind != parser.MonorepoNone {
		cfg.Monorepo.Enabled = true
		cfg.Monorepo.Kind = string(layout.Kind)
		for _, pkg := range layout.Packages {
			cfg.Monorepo.Packages = append(cfg.Monorepo.Packages, pkg.Path)
		}
	}

	if err := config.Save(root, cfg); err != nil {
		errkit.FatalError(errkit.New("failed to write keel.json").WithCause(err), globals.jsonMode())
	}

	graphPath := filepath.Join(dir, "graph.db")
	st, err := store.Open(graphPath)
	if err != nil {
		errkit.FatalError(errkit.New("failed to create graph store").WithCause(err), globals.jsonMode())
	}
	_ = st.Close()

	if globals.JSON {
		fmt.Printf(`{"version":%q,"command":"init","initialized":true,"root":%q}`+"\n", cfg.Version, root)
		return
	}
	fmt.Printf("Initialized keel project in %s\n", dir)
	if layout.Kind != parser.MonorepoNone {
		fmt.Printf("Detected %s monorepo layout (%d packages)\n", layout.Kind, len(layout.Packages))
	}
}

func runDeinit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("deinit", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation")
	_ = fs.Parse(args)

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	dir := config.Dir(root)
	if _, err := os.Stat(dir); err != nil {
		errkit.FatalError(errkit.Uninitialized(), globals.jsonMode())
	}

	if !*yes && !globals.JSON {
		fmt.Printf("Remove %s? [y/N] ", dir)
		var resp string
		_, _ = fmt.Scanln(&resp)
		if !strings.EqualFold(resp, "y") && !strings.EqualFold(resp, "yes") {
			fmt.Println("aborted")
			return
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		errkit.FatalError(errkit.New("failed to remove .keel directory").WithCause(err), globals.jsonMode())
	}

	if globals.JSON {
		fmt.Printf(`{"command":"deinit","removed":true,"root":%q}`+"\n", root)
		return
	}
	fmt.Printf("Removed %s\n", dir)
}

// runConfig shows keel.json (no args), or walks an existing key path and
// sets it to VALUE (two args) — per spec.md's explicit instruction that
// the set path only mutates keys that already exist, never creates new
// ones.
func runConfig(args []string, globals GlobalFlags) {
	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	if _, err := os.Stat(config.Dir(root)); err != nil {
		errkit.FatalError(errkit.Uninitialized(), globals.jsonMode())
	}

	cfg := config.Load(root)

	if len(args) == 0 {
		printConfig(cfg, globals)
		return
	}

	key := args[0]
	if len(args) == 1 {
		val, ok := configGet(cfg, key)
		if !ok {
			errkit.FatalError(errkit.New("unknown config key: "+key), globals.jsonMode())
		}
		fmt.Println(val)
		return
	}

	if !configSet(cfg, key, args[1]) {
		errkit.FatalError(errkit.New("unknown config key: "+key).
			WithSuggestion("config set only walks keys that already exist"), globals.jsonMode())
	}
	if err := config.Save(root, cfg); err != nil {
		errkit.FatalError(errkit.New("failed to save keel.json").WithCause(err), globals.jsonMode())
	}
	fmt.Printf("%s = %s\n", key, args[1])
}

func printConfig(cfg *config.Config, globals GlobalFlags) {
	if globals.JSON {
		b, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Printf("version: %s\n", cfg.Version)
	fmt.Printf("languages: %s\n", strings.Join(cfg.Languages, ", "))
	fmt.Printf("enforce.type_hints: %v\n", cfg.Enforce.TypeHints)
	fmt.Printf("enforce.docstrings: %v\n", cfg.Enforce.Docstrings)
	fmt.Printf("enforce.placement: %v\n", cfg.Enforce.Placement)
	fmt.Printf("circuit_breaker.max_failures: %d\n", cfg.CircuitBreaker.MaxFailures)
	fmt.Printf("batch.timeout_seconds: %d\n", cfg.Batch.TimeoutSeconds)
	fmt.Printf("monorepo.enabled: %v\n", cfg.Monorepo.Enabled)
}

// configGet and configSet walk the small set of dotted paths keel.json
// exposes. Unknown paths return ok=false; configSet never creates a key
// that wasn't already one of these.
func configGet(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "version":
		return cfg.Version, true
	case "enforce.type_hints":
		return strconv.FormatBool(cfg.Enforce.TypeHints), true
	case "enforce.docstrings":
		return strconv.FormatBool(cfg.Enforce.Docstrings), true
	case "enforce.placement":
		return strconv.FormatBool(cfg.Enforce.Placement), true
	case "circuit_breaker.max_failures":
		return strconv.FormatUint(uint64(cfg.CircuitBreaker.MaxFailures), 10), true
	case "batch.timeout_seconds":
		return strconv.FormatUint(cfg.Batch.TimeoutSeconds, 10), true
	case "monorepo.enabled":
		return strconv.FormatBool(cfg.Monorepo.Enabled), true
	default:
		return "", false
	}
}

func configSet(cfg *config.Config, key, value string) bool {
	switch key {
	case "version":
		cfg.Version = value
	case "enforce.type_hints":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		cfg.Enforce.TypeHints = b
	case "enforce.docstrings":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		cfg.Enforce.Docstrings = b
	case "enforce.placement":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		cfg.Enforce.Placement = b
	case "circuit_breaker.max_failures":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return false
		}
		cfg.CircuitBreaker.MaxFailures = uint32(n)
	case "batch.timeout_seconds":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return false
		}
		cfg.Batch.TimeoutSeconds = n
	case "monorepo.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		cfg.Monorepo.Enabled = b
	default:
		return false
	}
	return true
}

