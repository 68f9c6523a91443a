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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/keel/internal/config"
	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/internal/telemetry"
	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/output"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/tier3"
)

// project bundles the handles every command but init/deinit/config needs:
// the loaded configuration, the open store, an enforcement engine seeded
// with persisted circuit-breaker state, and a mapper wired to every
// available language resolver and tier3 provider.
type project struct {
	root      string
	cfg       *config.Config
	store     *store.Store
	engine    *enforce.Engine
	mapper    *mapper.Mapper
	telemetry *telemetry.Recorder
	keelDir   string
}

// buildRegistry wires every Tier 1 language resolver this module carries.
// Only one TypeScript resolver is registered: NewTypeScriptResolver(true)'s
// tsx-superset grammar also parses plain .ts, and Registry keys resolvers
// by Language() alone, so registering both constructors would silently
// collide (both report "typescript").
func buildRegistry() *parser.Registry {
	return parser.NewRegistry(
		parser.NewGoResolver(),
		parser.NewJavaScriptResolver(),
		parser.NewTypeScriptResolver(true),
		parser.NewRustResolver(),
		parser.NewPythonResolver(),
	)
}

// buildTier3Registry wires an SCIP or LSP provider per language named in
// cfg.Tier3, leaving the registry empty (and Tier 3 resolution a no-op)
// when no such paths/commands are configured.
func buildTier3Registry(cfg *config.Config) *tier3.Registry {
	reg := tier3.NewRegistry()
	for lang, path := range cfg.Tier3.SCIPPaths {
		p := tier3.NewScipProvider(lang)
		// An unreadable or malformed index leaves the provider unavailable.
		if data, err := os.ReadFile(path); err == nil {
			_ = p.LoadIndex(data)
		}
		reg.Register(p)
	}
	for lang, cmd := range cfg.Tier3.LSPCommands {
		if len(cmd) == 0 {
			continue
		}
		reg.Register(tier3.NewLspProvider(lang, cmd, "."))
	}
	return reg
}

// openProjectOrExit loads the project at root, exiting with code 2 through
// errkit if .keel/ or graph.db is missing — the exit-code contract spec.md
// §7 fixes for every command that needs a prior init/map.
func openProjectOrExit(root string, globals GlobalFlags) *project {
	dir := config.Dir(root)
	if _, err := os.Stat(dir); err != nil {
		errkit.FatalError(errkit.Uninitialized(), globals.jsonMode())
	}

	graphPath := filepath.Join(dir, "graph.db")
	if _, err := os.Stat(graphPath); err != nil {
		errkit.FatalError(errkit.MissingGraph(), globals.jsonMode())
	}

	cfg := config.Load(root)

	st, err := store.Open(graphPath)
	if err != nil {
		errkit.FatalError(errkit.New("failed to open graph store").WithCause(err), globals.jsonMode())
	}

	engine := enforce.NewEngine(st, cfg.CircuitBreaker.MaxFailures, dir)
	if rows, err := st.LoadCircuitBreaker(); err == nil {
		imported := make([]enforce.BreakerState, 0, len(rows))
		for _, r := range rows {
			imported = append(imported, enforce.BreakerState{
				Code: r.ErrorCode, Identifier: r.Identifier,
				Consecutive: r.Consecutive, Downgraded: r.Downgraded,
			})
		}
		engine.BreakerImport(imported)
	}

	mp := mapper.New(buildRegistry(), buildTier3Registry(cfg), st, slog.Default())

	rec, err := telemetry.Load(dir)
	if err != nil {
		rec = telemetry.New()
	}

	return &project{root: root, cfg: cfg, store: st, engine: engine, mapper: mp, telemetry: rec, keelDir: dir}
}

// saveBreakerState persists the engine's circuit-breaker counters back to
// the store so the next one-shot CLI invocation shares escalation state.
func (p *project) saveBreakerState() {
	exported := p.engine.BreakerExport()
	rows := make([]store.BreakerRow, 0, len(exported))
	for _, s := range exported {
		rows = append(rows, store.BreakerRow{
			ErrorCode: s.Code, Identifier: s.Identifier,
			Consecutive: s.Consecutive, Downgraded: s.Downgraded,
		})
	}
	_ = p.store.SaveCircuitBreaker(rows)
}

func (p *project) close() {
	p.saveBreakerState()
	_ = p.telemetry.Save(p.keelDir)
	_ = p.store.Close()
}

// formatterFor picks the one formatter a command should render through,
// per the --json/--llm/default-human precedence every command shares.
func formatterFor(globals GlobalFlags) output.Formatter {
	switch {
	case globals.JSON:
		return output.NewJSONFormatter()
	case globals.LLM:
		return output.NewLLMFormatter()
	default:
		hf := output.NewHumanFormatter()
		if globals.NoColor {
			hf.Color = false
		}
		return hf
	}
}

// exitForStatus maps a compile result's status to spec.md §6's exit-code
// contract: 0 clean, 1 violations present.
func exitForStatus(status enforce.CompileStatus) int {
	if status == enforce.StatusError || status == enforce.StatusWarning {
		return 1
	}
	return 0
}
