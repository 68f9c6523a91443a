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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/keel/pkg/enforce"
	"github.com/kraklabs/keel/pkg/mapper"
	"github.com/kraklabs/keel/pkg/parser"
	"github.com/kraklabs/keel/pkg/store"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := enforce.NewEngine(st, 3, "")
	registry := parser.NewRegistry(parser.NewGoResolver())
	mp := mapper.New(registry, nil, st, nil)

	root := t.TempDir()
	return New("proj", root, st, engine, mp), root
}

func TestHandleCompileRunsRulesOverParsedFiles(t *testing.T) {
	s, root := newTestServer(t)

	src := "package demo\n\nfunc Greet() string {\n\treturn \"hi\"\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "demo.go"), []byte(src), 0o644))

	result, err := s.HandleCompile(context.Background(), []string{"demo.go"}, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesAnalyzed)
}

func TestHandleCompileRequiresFiles(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.HandleCompile(context.Background(), nil, false)
	require.Error(t, err)
}

func TestHandleExplainNeedsPriorCompile(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.HandleExplain("E001", "somehash")
	require.Error(t, err)
}

func TestHandleExplainFindsViolationFromLastCompile(t *testing.T) {
	s, _ := newTestServer(t)
	s.lastCompile = &enforce.CompileResult{
		Errors: []enforce.Violation{{
			Code: "E001", Hash: "somehash", File: "src/a.go", Line: 3,
			Message: "missing docstring", ResolutionTier: "tree-sitter", Confidence: 0.9,
		}},
	}

	result, err := s.HandleExplain("E001", "somehash")
	require.NoError(t, err)
	require.Equal(t, "E001", result.ErrorCode)
	require.Equal(t, 0.9, result.Confidence)
	require.Len(t, result.ResolutionChain, 1)
}

func TestHandleWhereAndDiscoverRequireHash(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.HandleWhere("")
	require.Error(t, err)

	_, err = s.HandleDiscover("", 1, false)
	require.Error(t, err)
}
