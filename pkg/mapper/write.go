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

package mapper

import (
	"path/filepath"
	"strings"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/hashid"
)

// writeSummary reports what one writeAll call actually persisted.
type writeSummary struct {
	definitionsWritten int
	edgesWritten        int
	modulesProfiled     int
	hotspots            []Hotspot
}

// writeAll persists parsed files as nodes, resolved calls as edges, and
// derived per-module profiles. Nodes are written in two waves because a
// definition's module_id is only known once its module node has an
// AUTOINCREMENT id assigned by the store — the store's GetNodesInFile is
// the read-back step that recovers those ids.
func (m *Mapper) writeAll(fileIndexes []graph.FileIndex, edges []pendingEdge) (writeSummary, error) {
	var summary writeSummary
	if len(fileIndexes) == 0 {
		return summary, nil
	}

	moduleChanges := make([]graph.NodeChange, 0, len(fileIndexes))
	for _, fi := range fileIndexes {
		moduleChanges = append(moduleChanges, graph.NodeChange{
			Op:   graph.OpAdd,
			Node: moduleNode(fi),
		})
	}
	if err := m.Store.UpdateNodes(moduleChanges); err != nil {
		return summary, err
	}

	moduleIDByPath := make(map[string]int64, len(fileIndexes))
	oldByPath := make(map[string]map[string]*graph.Node, len(fileIndexes))
	for _, fi := range fileIndexes {
		nodes, err := m.Store.GetNodesInFile(fi.Path)
		if err != nil {
			continue
		}
		byName := make(map[string]*graph.Node, len(nodes))
		for _, n := range nodes {
			if n.Kind == graph.KindModule {
				moduleIDByPath[fi.Path] = n.ID
				continue
			}
			byName[n.Name] = n
		}
		oldByPath[fi.Path] = byName
	}

	defChanges := make([]graph.NodeChange, 0)
	for _, fi := range fileIndexes {
		moduleID := moduleIDByPath[fi.Path]
		oldByName := oldByPath[fi.Path]
		for _, def := range fi.Definitions {
			newNode := definitionNode(fi.Path, def, moduleID)
			if old, ok := oldByName[def.Name]; ok {
				// Definition survives under the same name: carry rename
				// identity forward if its content hash moved, and remove
				// the now-superseded row under the old hash.
				if old.Hash != newNode.Hash {
					newNode.PushPreviousHash(old.Hash)
					defChanges = append(defChanges, graph.NodeChange{Op: graph.OpRemove, NodeID: old.ID})
				}
				delete(oldByName, def.Name)
			}
			defChanges = append(defChanges, graph.NodeChange{Op: graph.OpAdd, Node: newNode})
		}
		// Anything left in oldByName had no matching definition in this
		// parse: its source span disappeared, so the node goes too.
		for _, old := range oldByName {
			defChanges = append(defChanges, graph.NodeChange{Op: graph.OpRemove, NodeID: old.ID})
		}
	}
	if len(defChanges) > 0 {
		if err := m.Store.UpdateNodes(defChanges); err != nil {
			return summary, err
		}
	}
	summary.definitionsWritten = len(defChanges)

	idByHash := make(map[string]int64, len(defChanges)+len(moduleChanges))
	for _, fi := range fileIndexes {
		nodes, err := m.Store.GetNodesInFile(fi.Path)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			idByHash[n.Hash] = n.ID
		}
	}

	edgeChanges := make([]graph.EdgeChange, 0, len(edges))
	for _, e := range edges {
		sourceID, sok := idByHash[e.sourceHash]
		targetID, tok := idByHash[e.targetHash]
		if !sok || !tok {
			continue
		}
		edgeChanges = append(edgeChanges, graph.EdgeChange{
			Op: graph.OpAdd,
			Edge: graph.Edge{
				SourceID:   sourceID,
				TargetID:   targetID,
				Kind:       e.kind,
				FilePath:   e.filePath,
				Line:       e.line,
				Confidence: e.confidence,
			},
		})
	}
	if len(edgeChanges) > 0 {
		if err := m.Store.UpdateEdges(edgeChanges); err != nil {
			return summary, err
		}
	}
	summary.edgesWritten = len(edgeChanges)

	for _, fi := range fileIndexes {
		moduleID, ok := moduleIDByPath[fi.Path]
		if !ok {
			continue
		}
		profile := buildModuleProfile(fi, moduleID)
		if err := m.Store.SaveModuleProfile(&profile); err != nil {
			continue
		}
		summary.modulesProfiled++
	}

	summary.hotspots = computeHotspots(edgeChanges, idByHash, fileIndexes, 10)

	return summary, nil
}

func moduleHash(path string) string {
	return hashid.Compute("module:"+path, "", "")
}

func moduleNode(fi graph.FileIndex) graph.Node {
	name := strings.TrimSuffix(filepath.Base(fi.Path), filepath.Ext(fi.Path))
	lineEnd := 1
	for _, def := range fi.Definitions {
		if def.LineEnd > lineEnd {
			lineEnd = def.LineEnd
		}
	}
	return graph.Node{
		Hash:      moduleHash(fi.Path),
		Kind:      graph.KindModule,
		Name:      name,
		Signature: fi.Path,
		FilePath:  fi.Path,
		LineStart: 1,
		LineEnd:   lineEnd,
	}
}

func definitionNode(path string, def graph.PendingNode, moduleID int64) graph.Node {
	kind := def.Kind
	if kind == "" {
		kind = graph.KindFunction
	}
	return graph.Node{
		Hash:              def.Hash,
		Kind:              kind,
		Name:              def.Name,
		Signature:         def.Signature,
		FilePath:          path,
		LineStart:         def.LineStart,
		LineEnd:           def.LineEnd,
		Docstring:         def.Docstring,
		IsPublic:          def.IsPublic,
		TypeHintsPresent:  def.TypeHintsPresent,
		HasDocstring:      def.HasDocstring,
		ExternalEndpoints: def.ExternalEndpoints,
		ModuleID:          moduleID,
		BodyNormalized:    def.BodyNormalized,
	}
}
