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

package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/output"
	"github.com/kraklabs/keel/pkg/store"
)

// Server is the single implementation behind both transports (stdio MCP and
// HTTP). Handlers are pure functions over (store, engine) per the
// discover/where/explain/map contracts, wrapped here only to hold the
// store/engine/mapper handles and the in-process compile cache an `explain`
// call needs to look a prior violation back up by (code, hash). Store
// already guards its own tables with an internal mutex; Engine does not, so
// engineMu serializes Compile calls across concurrent requests without
// nesting inside Store's lock.
type Server struct {
	ProjectID string
	Root      string

	Store *store.Store

	engineMu sync.Mutex
	Engine   *enforce.Engine

	Mapper *mapper.Mapper

	compileMu   sync.RWMutex
	lastCompile *enforce.CompileResult
}

// New builds a Server. root is the project directory compile/map file paths
// are resolved against.
func New(projectID, root string, st *store.Store, engine *enforce.Engine, mp *mapper.Mapper) *Server {
	return &Server{ProjectID: projectID, Root: root, Store: st, Engine: engine, Mapper: mp}
}

// HandleCompile parses files and runs every enforcement rule over them.
func (s *Server) HandleCompile(ctx context.Context, files []string, strict bool) (*enforce.CompileResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("compile requires at least one file")
	}

	indexes, _ := s.Mapper.ParseFiles(ctx, s.Root, files, 0)

	s.engineMu.Lock()
	result := s.Engine.Compile(indexes, strict)
	s.engineMu.Unlock()

	s.compileMu.Lock()
	s.lastCompile = result
	s.compileMu.Unlock()

	return result, nil
}

// HandleDiscover looks up a definition's signature, callers, callees, and
// containing module.
func (s *Server) HandleDiscover(hash string, depth int, suggestPlacement bool) (*output.DiscoverResult, error) {
	if hash == "" {
		return nil, fmt.Errorf("discover requires a hash")
	}
	return discover(s.Store, hash, depth, suggestPlacement)
}

// HandleWhere locates a definition's current file/line and rename history.
func (s *Server) HandleWhere(hash string) (*output.WhereResult, error) {
	if hash == "" {
		return nil, fmt.Errorf("where requires a hash")
	}
	return where(s.Store, hash)
}

// HandleExplain explains how (code, hash) was resolved, using the most
// recent compile result this server produced. A hash with no matching
// violation in that result means either it never violated code, or the
// server hasn't compiled since restarting.
func (s *Server) HandleExplain(code, hash string) (*output.ExplainResult, error) {
	if code == "" || hash == "" {
		return nil, fmt.Errorf("explain requires a code and a hash")
	}

	s.compileMu.RLock()
	last := s.lastCompile
	s.compileMu.RUnlock()
	if last == nil {
		return nil, fmt.Errorf("no compile result to explain from yet; run keel/compile first")
	}

	v, found := findViolation(last, code, hash)
	if !found {
		return nil, fmt.Errorf("no violation %s on %s in the last compile result", code, hash)
	}

	return &output.ExplainResult{
		Version:        output.Version,
		Command:        "explain",
		ErrorCode:      v.Code,
		Hash:           v.Hash,
		Confidence:     v.Confidence,
		ResolutionTier: v.ResolutionTier,
		ResolutionChain: []output.ResolutionStep{
			{Kind: v.ResolutionTier, File: v.File, Line: v.Line, Text: v.Message},
		},
		Summary: v.Message,
	}, nil
}

func findViolation(result *enforce.CompileResult, code, hash string) (enforce.Violation, bool) {
	for _, v := range result.Errors {
		if v.Code == code && v.Hash == hash {
			return v, true
		}
	}
	for _, v := range result.Warnings {
		if v.Code == code && v.Hash == hash {
			return v, true
		}
	}
	return enforce.Violation{}, false
}

// HandleMap summarizes the structural graph at the requested depth.
func (s *Server) HandleMap(depth int) (*output.MapResult, error) {
	return mapSummary(s.Store, depth)
}
