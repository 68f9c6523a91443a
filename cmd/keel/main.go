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

// Package main implements the keel CLI: a structural enforcement engine for
// LLM-driven code editing.
//
// Usage:
//
//	keel init                     Create .keel/ in the current directory
//	keel map                      Build the full structural graph
//	keel compile [files...]       Run enforcement rules over files
//	keel discover <hash>          Show callers/callees of a definition
//	keel serve --mcp              Start the MCP server over stdio
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/internal/updatecheck"
)

var (
	version = "dev"
	commit  = "unknown"
)

// GlobalFlags holds the flags recognized before the subcommand name.
type GlobalFlags struct {
	JSON    bool
	LLM     bool
	Verbose int
	NoColor bool
}

func (g GlobalFlags) jsonMode() bool { return g.JSON }

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format")
		llmOutput   = flag.Bool("llm", false, "Output in token-budgeted LLM format")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `keel - structural enforcement for LLM-driven code editing

Usage:
  keel <command> [options]

Commands:
  init                        Create .keel/ configuration in this project
  map                         Build the full structural graph
  compile [files...]          Run enforcement rules over files
  discover <hash>             Show callers/callees and containing module
  where <hash>                Locate a definition and its rename history
  explain <CODE> <hash>       Explain how a violation was resolved
  check <query> [--name]      Fast existence probe by hash or exact name
  search <term>               Free-text search over definition names
  context <file>              Everything the graph knows about one file
  analyze <file>              Structural metrics derived from the call graph
  fix [--apply] [<hash>]      Propose or apply fixes for violations
  name <description>          Suggest a module and name for new code
  serve [--mcp|--http]        Start the MCP/HTTP server
  watch                       Recompile on file changes
  stats                       Show session counters
  deinit                      Remove .keel/ from this project
  config [KEY [VALUE]]        Show or edit keel.json

Global Options:
  --json            Output in JSON format
  --llm             Output in token-budgeted LLM format
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity
  -V, --version     Show version and exit

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("keel version %s (%s)\n", version, commit)
		if res := updatecheck.Check(version); !res.UpToDate {
			fmt.Printf("a newer version is available: %s\n", res.LatestVersion)
		}
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, LLM: *llmOutput, Verbose: *verbose, NoColor: *noColor}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "deinit":
		runDeinit(cmdArgs, globals)
	case "config":
		runConfig(cmdArgs, globals)
	case "map":
		runMap(cmdArgs, globals)
	case "compile":
		runCompile(cmdArgs, globals)
	case "discover":
		runDiscover(cmdArgs, globals)
	case "where":
		runWhere(cmdArgs, globals)
	case "explain":
		runExplain(cmdArgs, globals)
	case "check":
		runCheck(cmdArgs, globals)
	case "search":
		runSearch(cmdArgs, globals)
	case "context":
		runContext(cmdArgs, globals)
	case "analyze":
		runAnalyze(cmdArgs, globals)
	case "fix":
		runFix(cmdArgs, globals)
	case "name":
		runName(cmdArgs, globals)
	case "serve":
		runServe(cmdArgs, globals)
	case "watch":
		runWatch(cmdArgs, globals)
	case "stats":
		runStats(cmdArgs, globals)
	default:
		errkit.FatalError(errkit.New("unknown command: "+command).WithSuggestion("run `keel` with no arguments for usage"), globals.jsonMode())
	}
}
