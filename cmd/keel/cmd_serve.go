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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/server"
)

// runServe exposes the project over one transport: stdio MCP by default, or
// a plain HTTP API with --http. Both speak the same five operations
// compile/discover/where/explain/map, and --watch keeps the graph current while
// the server runs.
func runServe(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	useMCP := fs.Bool("mcp", true, "Serve the MCP stdio protocol (default transport)")
	httpAddr := fs.String("http", "", "Serve a plain HTTP API on this address instead of stdio")
	watch := fs.Bool("watch", false, "Recompile on file changes while serving")
	_ = fs.Parse(args)

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	srv := server.New(proj.cfg.Version, root, proj.store, proj.engine, proj.mapper)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *watch {
		go watchAndRecompile(ctx, proj)
	}

	if *httpAddr != "" {
		httpSrv := &http.Server{Addr: *httpAddr, Handler: srv.HTTPMux()}
		go func() {
			<-ctx.Done()
			_ = httpSrv.Close()
		}()
		fmt.Fprintf(os.Stderr, "keel serve: listening on %s\n", *httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errkit.FatalError(errkit.New("http server failed").WithCause(err), globals.jsonMode())
		}
		return
	}

	if !*useMCP {
		errkit.FatalError(errkit.New("serve requires either --mcp or --http"), globals.jsonMode())
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := srv.ServeStdio(os.Stdin, os.Stdout, logger); err != nil {
		errkit.FatalError(errkit.New("mcp server failed").WithCause(err), globals.jsonMode())
	}
}
