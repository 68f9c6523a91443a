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

// Package mapper implements the full-map pipeline: walk a tree, parse every
// source file in parallel, resolve call references across three tiers, and
// write the resulting nodes, edges, and module profiles to the store in
// transactional batches.
package mapper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/store"
	"github.com/kraklabs/keel/pkg/tier3"
)

// ProgressFunc reports parsing progress, mirroring the teacher pipeline's
// (current, total, phase) callback shape.
type ProgressFunc func(current, total int64, phase string)

// Options configures one Map run.
type Options struct {
	Root         string
	ParseWorkers int
	OnProgress   ProgressFunc
}

// Result summarizes one completed map run.
type Result struct {
	RunID               string
	FilesProcessed      int
	ParseErrors         int
	ParseErrorRate      float64
	DefinitionsWritten  int
	EdgesWritten        int
	ModulesProfiled     int
	Hotspots            []Hotspot
	ParseDuration       time.Duration
	ResolveDuration     time.Duration
	WriteDuration       time.Duration
	TotalDuration       time.Duration
}

// Mapper orchestrates the walk -> parse -> resolve -> write pipeline.
type Mapper struct {
	Registry *parser.Registry
	Tier3    *tier3.Registry
	Store    *store.Store
	Logger   *slog.Logger
}

// New builds a Mapper. tier3Registry may be nil or empty: Pass 3 simply
// resolves nothing when no providers are registered.
func New(registry *parser.Registry, tier3Registry *tier3.Registry, st *store.Store, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	if tier3Registry == nil {
		tier3Registry = tier3.NewRegistry()
	}
	return &Mapper{Registry: registry, Tier3: tier3Registry, Store: st, Logger: logger}
}

// Map runs one full-map pipeline over opts.Root.
func (m *Mapper) Map(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	paths, err := parser.WalkFiles(opts.Root)
	if err != nil {
		return nil, err
	}
	if err := m.removeDeletedFiles(paths); err != nil {
		return nil, err
	}

	workers := opts.ParseWorkers
	if workers <= 0 {
		workers = 4
	}

	parseStart := time.Now()
	fileIndexes, parseErrors := m.parseFilesParallel(ctx, opts.Root, paths, workers, opts.OnProgress)
	parseDuration := time.Since(parseStart)

	resolveStart := time.Now()
	nameIndex := parser.NewNameIndex(fileIndexes)
	edges := resolveReferences(fileIndexes, nameIndex, m.Registry, m.Tier3)
	resolveDuration := time.Since(resolveStart)

	writeStart := time.Now()
	written, err := m.writeAll(fileIndexes, edges)
	writeDuration := time.Since(writeStart)
	if err != nil {
		return nil, err
	}

	errorRate := 0.0
	if len(paths) > 0 {
		errorRate = float64(parseErrors) / float64(len(paths))
	}

	m.Logger.Info("mapper.map.complete",
		"files", len(fileIndexes),
		"definitions", written.definitionsWritten,
		"edges", written.edgesWritten,
		"parse_errors", parseErrors,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		RunID:              uuid.NewString(),
		FilesProcessed:     len(fileIndexes),
		ParseErrors:        parseErrors,
		ParseErrorRate:     errorRate,
		DefinitionsWritten: written.definitionsWritten,
		EdgesWritten:       written.edgesWritten,
		ModulesProfiled:    written.modulesProfiled,
		Hotspots:           written.hotspots,
		ParseDuration:      parseDuration,
		ResolveDuration:    resolveDuration,
		WriteDuration:      writeDuration,
		TotalDuration:      time.Since(start),
	}, nil
}

// removeDeletedFiles drops every module (and its definitions, edges, and
// endpoints via FK cascade) whose file no longer appears in the current
// walk, so a full re-map reflects files removed from disk between runs.
func (m *Mapper) removeDeletedFiles(paths []string) error {
	modules, err := m.Store.GetAllModules()
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p] = true
	}
	for _, mod := range modules {
		if present[mod.FilePath] {
			continue
		}
		if err := m.Store.DeleteNodesForFile(mod.FilePath); err != nil {
			return err
		}
	}
	return nil
}

// WriteParsed resolves cross-references within an already-parsed file set
// and persists the resulting nodes and edges, the same resolve+write steps
// Map runs after parsing. cmd_compile uses this so a `keel compile` run
// leaves the store's node/edge state current for the files it touched,
// rather than only checking rules against a transient parse.
func (m *Mapper) WriteParsed(fileIndexes []graph.FileIndex) error {
	if len(fileIndexes) == 0 {
		return nil
	}
	nameIndex := parser.NewNameIndex(fileIndexes)
	edges := resolveReferences(fileIndexes, nameIndex, m.Registry, m.Tier3)
	_, err := m.writeAll(fileIndexes, edges)
	return err
}

// ParseFiles parses an explicit list of paths (relative to root) without
// walking the tree, for callers that already know which files they need a
// FileIndex for — the server's compile handler, most notably, which
// receives a file list from its caller rather than scanning a whole repo.
func (m *Mapper) ParseFiles(ctx context.Context, root string, paths []string, workers int) ([]graph.FileIndex, int) {
	if workers <= 0 {
		workers = 4
	}
	return m.parseFilesParallel(ctx, root, paths, workers, nil)
}

// parseFilesParallel parses files with a work-stealing pool bounded by
// workers, following the teacher ecosystem's errgroup.SetLimit idiom for
// bounded fan-out (the mapper owns no thread-pool machinery of its own).
func (m *Mapper) parseFilesParallel(ctx context.Context, root string, paths []string, workers int, onProgress ProgressFunc) ([]graph.FileIndex, int) {
	if len(paths) == 0 {
		return nil, 0
	}
	if len(paths) < 10 {
		workers = 1
	}

	var errorCount int32
	var progress int64
	total := int64(len(paths))

	ordered := make([]*graph.FileIndex, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			content, readErr := os.ReadFile(filepath.Join(root, path))
			if readErr != nil {
				atomic.AddInt32(&errorCount, 1)
				current := atomic.AddInt64(&progress, 1)
				if onProgress != nil {
					onProgress(current, total, "parsing")
				}
				return nil
			}

			idx, parseErr := m.Registry.ParseFile(path, content)
			if parseErr != nil {
				atomic.AddInt32(&errorCount, 1)
				m.Logger.Warn("mapper.parse_file.error", "path", path, "err", parseErr)
			}
			ordered[i] = &idx

			current := atomic.AddInt64(&progress, 1)
			if onProgress != nil {
				onProgress(current, total, "parsing")
			}
			return nil
		})
	}
	_ = g.Wait() // every goroutine above always returns nil

	out := make([]graph.FileIndex, 0, len(paths))
	for _, idx := range ordered {
		if idx == nil {
			continue
		}
		out = append(out, *idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out, int(errorCount)
}
