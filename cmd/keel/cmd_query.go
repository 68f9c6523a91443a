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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/server"
)

func runDiscover(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	depth := fs.Int("depth", 1, "Call-graph traversal depth")
	suggestPlacement := fs.Bool("suggest-placement", false, "Include a placement suggestion")
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) == 0 {
		errkit.FatalError(errkit.New("discover requires a hash"), globals.jsonMode())
	}

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	srv := server.New("", root, proj.store, proj.engine, proj.mapper)
	result, err := srv.HandleDiscover(rest[0], *depth, *suggestPlacement)
	if err != nil {
		proj.close()
		errkit.FatalError(errkit.New("discover failed").WithCause(err), globals.jsonMode())
	}

	fmt.Print(formatterFor(globals).FormatDiscover(result))
}

func runWhere(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("where", flag.ExitOnError)
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) == 0 {
		errkit.FatalError(errkit.New("where requires a hash"), globals.jsonMode())
	}

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	srv := server.New("", root, proj.store, proj.engine, proj.mapper)
	result, err := srv.HandleWhere(rest[0])
	if err != nil {
		proj.close()
		errkit.FatalError(errkit.New("where failed").WithCause(err), globals.jsonMode())
	}

	fmt.Print(formatterFor(globals).FormatWhere(result))
}

func runExplain(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	_ = fs.Bool("tree", false, "Render the resolution chain as a tree (human format only)")
	_ = fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 2 {
		errkit.FatalError(errkit.New("explain requires a CODE and a hash"), globals.jsonMode())
	}

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	srv := server.New("", root, proj.store, proj.engine, proj.mapper)
	result, err := srv.HandleExplain(rest[0], rest[1])
	if err != nil {
		proj.close()
		errkit.FatalError(errkit.New("explain failed").
			WithDetail(err.Error()).
			WithSuggestion("run `keel compile` first; explain only knows about the most recent compile"), globals.jsonMode())
	}

	fmt.Print(formatterFor(globals).FormatExplain(result))
}
