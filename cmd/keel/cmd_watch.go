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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/mapper"
)

var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".keel": true, "bin": true, "target": true,
}

const watchDebounce = 2 * time.Second

// runWatch runs a standalone `keel watch`: same debounced recompile loop
// serve --watch uses, but as the whole command rather than a side process.
func runWatch(args []string, globals GlobalFlags) {
	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	ctx := context.Background()
	watchAndRecompile(ctx, proj)
}

// watchAndRecompile watches every directory under proj.root (skipping VCS,
// dependency, and build directories) and re-maps the whole tree after a
// debounce window once changes settle.
func watchAndRecompile(ctx context.Context, proj *project) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keel watch: fsnotify failed: %v\n", err)
		return
	}
	defer watcher.Close()

	watched, skipped := addWatchDirs(watcher, proj.root)
	fmt.Fprintf(os.Stderr, "keel watch: watching %d dirs, skipped %d hidden/system dirs\n", watched, skipped)

	var mu sync.Mutex
	var debounceTimer *time.Timer
	var timerCh <-chan time.Time
	eventCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			eventCount++
			mu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(watchDebounce)
			timerCh = debounceTimer.C
			mu.Unlock()
			_ = event
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "keel watch: fsnotify error: %v\n", err)
		case <-timerCh:
			timerCh = nil
			fmt.Fprintf(os.Stderr, "keel watch: debounce fired after %d events, recompiling...\n", eventCount)
			eventCount = 0
			if err := recompileTree(ctx, proj); err != nil {
				fmt.Fprintf(os.Stderr, "keel watch: recompile failed: %v\n", err)
			}
		}
	}
}

// addWatchDirs walks root adding every non-skipped directory to watcher,
// returning how many were added and how many were skipped.
func addWatchDirs(watcher *fsnotify.Watcher, root string) (watched, skipped int) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && base != ".") {
			skipped++
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		watched++
		return nil
	})
	return watched, skipped
}

// recompileTree re-maps the whole tree, logging a one-line summary instead
// of the full formatter output — watch runs unattended, not as a one-shot
// CLI invocation a script parses. It does not run the enforcement rules, so
// no violations are reported.
func recompileTree(ctx context.Context, proj *project) error {
	result, err := proj.mapper.Map(ctx, mapper.Options{Root: proj.root})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "keel watch: mapped %d files, %d parse errors\n", result.FilesProcessed, result.ParseErrors)
	return nil
}
